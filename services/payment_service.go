package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"permit_flow_app_go/models"
)

// AssignAmount sets the fee owed. The case state does not change.
// An amount can be reassigned until the applicant has paid.
func (s *CaseService) AssignAmount(ctx context.Context, actor models.Actor, caseID string, amount float64) (*models.Case, error) {
	c, err := s.mutate(ctx, actor, caseID, ActionAssignAmount, func(c *models.Case) (*Mutation, error) {
		if amount <= 0 {
			return nil, ValidationError("amount must be greater than zero")
		}
		if c.State == models.CaseStateLicenseIssued {
			return nil, InvalidStateError("cannot assign an amount once the licence is issued")
		}
		if c.Payment.Status == models.PaymentStatusPaid || c.Payment.Status == models.PaymentStatusVerified {
			return nil, InvalidStateError("payment is already %s", c.Payment.Status)
		}

		c.Payment = models.Payment{
			Amount: amount,
			Method: models.DefaultPaymentMethod,
			Status: models.PaymentStatusPending,
		}
		return &Mutation{Entry: models.CaseHistoryEntry{
			Action: models.HistoryActionAmountAssigned,
			Detail: fmt.Sprintf("Amount assigned: S/ %.2f", amount),
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(BuildAmountAssignedEmail(c), nil)
	return c, nil
}

// ProofInput is a proof of payment submitted by the applicant
type ProofInput struct {
	File            *FileUpload
	OperationNumber string
	OperationDate   time.Time
}

// SubmitProof attaches the payment voucher and marks the payment as paid.
// Approval still requires a reviewer.
func (s *CaseService) SubmitProof(ctx context.Context, actor models.Actor, caseID string, input ProofInput) (*models.Case, error) {
	return s.mutate(ctx, actor, caseID, ActionSubmitProof, func(c *models.Case) (*Mutation, error) {
		if !c.Payment.IsAssigned() {
			return nil, InvalidStateError("no payment amount has been assigned")
		}
		if c.Payment.HasProof() || c.Payment.Status != models.PaymentStatusPending {
			return nil, InvalidStateError("a proof of payment was already submitted")
		}

		operationNumber := strings.TrimSpace(input.OperationNumber)
		if operationNumber == "" {
			return nil, ValidationError("operation number is required")
		}
		if input.OperationDate.IsZero() {
			return nil, ValidationError("operation date is required")
		}
		if input.OperationDate.After(s.now()) {
			return nil, ValidationError("operation date cannot be in the future")
		}
		mimeType, err := ValidateDocumentUpload(input.File, s.maxUpload)
		if err != nil {
			return nil, err
		}

		key := GenerateVoucherKey(c.ID, extensionFor(mimeType, input.File.Filename))
		ref, err := storeFile(ctx, s.storage, key, mimeType, input.File)
		if err != nil {
			return nil, err
		}

		paidAt := s.now()
		operationDate := input.OperationDate
		c.Payment.ProofRef = ref
		c.Payment.ProofName = input.File.Filename
		c.Payment.OperationNumber = operationNumber
		c.Payment.OperationDate = &operationDate
		c.Payment.PaidAt = &paidAt
		c.Payment.Status = models.PaymentStatusPaid

		return &Mutation{
			Entry: models.CaseHistoryEntry{
				Action: models.HistoryActionProofSubmitted,
				Detail: fmt.Sprintf("Operation %s of %s", operationNumber, operationDate.Format("2006-01-02")),
			},
			Cleanup: func() { discardFile(s.storage, ref) },
		}, nil
	})
}

// VerifyPayment confirms a paid fee. Only a paid payment can be verified.
func (s *CaseService) VerifyPayment(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error) {
	return s.mutate(ctx, actor, caseID, ActionVerifyPayment, func(c *models.Case) (*Mutation, error) {
		if c.Payment.Status != models.PaymentStatusPaid {
			return nil, InvalidStateError("payment must be paid before verification (current: %q)", c.Payment.Status)
		}
		c.Payment.Status = models.PaymentStatusVerified
		return &Mutation{Entry: models.CaseHistoryEntry{
			Action: models.HistoryActionPaymentVerified,
			Detail: fmt.Sprintf("Operation %s verified", c.Payment.OperationNumber),
		}}, nil
	})
}

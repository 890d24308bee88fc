package services

import (
	"testing"

	"permit_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeCase(state models.CaseState) *models.Case {
	c := &models.Case{
		ID:        "case-1",
		State:     state,
		Applicant: models.Applicant{ActorID: applicantA.ID},
		Project:   models.Project{WorkType: models.WorkTypeNewConstruction, Ownership: models.OwnershipOwner},
	}
	for _, slot := range alwaysRequired {
		c.PutDocument(models.CaseDocument{Slot: slot, FileRef: "ref"})
	}
	return c
}

func TestPlanTransition(t *testing.T) {
	t.Run("Follows the table", func(t *testing.T) {
		target, err := planTransition(completeCase(models.CaseStateRegistered), ActionStartAdminReview, "")
		require.NoError(t, err)
		assert.Equal(t, models.CaseStateAdminReview, target)
	})

	t.Run("Wrong source state", func(t *testing.T) {
		_, err := planTransition(completeCase(models.CaseStateRegistered), ActionApproveTechReview, "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("Terminal states accept no ordinary transitions", func(t *testing.T) {
		for _, state := range []models.CaseState{models.CaseStateRejected, models.CaseStateLicenseIssued} {
			for action, tr := range transitions {
				if len(tr.From) == 0 {
					continue
				}
				_, err := planTransition(completeCase(state), action, "")
				assert.ErrorIs(t, err, ErrInvalidState, "%s from %s", action, state)
			}
		}
	})

	t.Run("Incomplete documents block document-dependent transitions", func(t *testing.T) {
		c := completeCase(models.CaseStateAdminReview)
		c.Project.LegalEntity = true

		_, err := planTransition(c, ActionApproveAdminReview, "")
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, []models.DocumentSlot{models.SlotPowerOfAttorney}, err.(*Error).Missing)

		// Observing does not depend on completeness
		_, err = planTransition(c, ActionObserve, "")
		assert.NoError(t, err)
	})

	t.Run("Payment must be verified", func(t *testing.T) {
		c := completeCase(models.CaseStatePaymentPending)
		c.Payment = models.Payment{Amount: 100, Status: models.PaymentStatusPaid}
		_, err := planTransition(c, ActionConfirmPayment, "")
		assert.ErrorIs(t, err, ErrInvalidState)

		c.Payment.Status = models.PaymentStatusVerified
		target, err := planTransition(c, ActionConfirmPayment, "")
		require.NoError(t, err)
		assert.Equal(t, models.CaseStatePaid, target)
	})

	t.Run("Explicit target must belong to the transition", func(t *testing.T) {
		c := completeCase(models.CaseStateInInspection)
		target, err := planTransition(c, ActionRecordInspectionResult, models.CaseStateObserved)
		require.NoError(t, err)
		assert.Equal(t, models.CaseStateObserved, target)

		_, err = planTransition(c, ActionRecordInspectionResult, models.CaseStateApproved)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("Licence issuance is allowed from any state", func(t *testing.T) {
		for _, state := range models.AllCaseStates {
			target, err := planTransition(completeCase(state), ActionIssueLicence, "")
			require.NoError(t, err, state)
			assert.Equal(t, models.CaseStateLicenseIssued, target)
		}
	})

	t.Run("Unknown action", func(t *testing.T) {
		_, err := planTransition(completeCase(models.CaseStateRegistered), Action("archive"), "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTransitionHistoryAction(t *testing.T) {
	tr, ok := TransitionFor(ActionApproveAdminReview)
	require.True(t, ok)
	assert.Equal(t, models.HistoryAction("APPROVE_ADMIN_REVIEW"), tr.HistoryAction())
}

func TestAvailableActions(t *testing.T) {
	c := completeCase(models.CaseStateAdminReview)

	assert.Equal(t, []Action{ActionApproveAdminReview, ActionObserve, ActionReject}, AvailableActions(adminReviewer, c))
	assert.Empty(t, AvailableActions(applicantA, c))
	assert.Equal(t, []Action{ActionIssueLicence}, AvailableActions(administrator, completeCase(models.CaseStateRejected)))

	observed := completeCase(models.CaseStateObserved)
	assert.Equal(t, []Action{ActionSubmitCorrection}, AvailableActions(applicantA, observed))
	assert.Empty(t, AvailableActions(applicantB, observed))
}

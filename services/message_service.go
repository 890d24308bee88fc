package services

import (
	"context"

	"permit_flow_app_go/models"
)

// MessageInput is a free-form message from the office to the applicant
type MessageInput struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// SendMessage records a message on the case ledger and emails it to the applicant.
// Markup is stripped from both fields.
func (s *CaseService) SendMessage(ctx context.Context, actor models.Actor, caseID string, input MessageInput) (*models.Case, error) {
	subject := s.sanitize(input.Subject)
	body := s.sanitize(input.Body)

	c, err := s.mutate(ctx, actor, caseID, ActionSendMessage, func(c *models.Case) (*Mutation, error) {
		if err := s.validateStruct(MessageInput{Subject: subject, Body: body}); err != nil {
			return nil, err
		}
		return &Mutation{Entry: models.CaseHistoryEntry{
			Action: models.HistoryActionMessageSent,
			Detail: subject,
		}}, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(BuildMessageEmail(c, subject, body), nil)
	return c, nil
}

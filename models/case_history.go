package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryAction names the mutation a ledger entry records.
// State transitions are recorded under their upper-cased action name.
type HistoryAction string

const (
	HistoryActionCaseCreated         HistoryAction = "CASE_CREATED"
	HistoryActionDocumentAttached    HistoryAction = "DOCUMENT_ATTACHED"
	HistoryActionAmountAssigned      HistoryAction = "AMOUNT_ASSIGNED"
	HistoryActionProofSubmitted      HistoryAction = "PROOF_SUBMITTED"
	HistoryActionPaymentVerified     HistoryAction = "PAYMENT_VERIFIED"
	HistoryActionInspectionScheduled HistoryAction = "INSPECTION_SCHEDULED"
	HistoryActionMessageSent         HistoryAction = "MESSAGE_SENT"
	HistoryActionLicenceDelivered    HistoryAction = "LICENCE_DELIVERED"
)

// ErrHistoryImmutable is returned when something tries to rewrite the ledger
var ErrHistoryImmutable = errors.New("case history entries are append-only")

// CaseHistoryEntry is an immutable record of one mutation of a case
type CaseHistoryEntry struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	CaseID   string `gorm:"type:uuid;not null;uniqueIndex:idx_case_history_seq" json:"case_id"`
	Sequence int    `gorm:"not null;uniqueIndex:idx_case_history_seq" json:"sequence"`

	Action HistoryAction `gorm:"not null;index" json:"action"`

	// Actor identification, denormalized for historical accuracy
	ActorID   string `gorm:"not null" json:"actor_id"`
	ActorRole Role   `gorm:"not null" json:"actor_role"`

	PreviousState CaseState `json:"previous_state,omitempty"`
	NewState      CaseState `gorm:"not null" json:"new_state"`
	Detail        string    `gorm:"type:text" json:"detail,omitempty"`
}

// BeforeCreate generates UUID
func (h *CaseHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of ledger entries
func (h *CaseHistoryEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrHistoryImmutable
}

// BeforeDelete prevents deletion of ledger entries
func (h *CaseHistoryEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrHistoryImmutable
}

// TableName specifies the table name
func (CaseHistoryEntry) TableName() string {
	return "case_history"
}

// IsStateChange reports whether the entry moved the case to another state
func (h *CaseHistoryEntry) IsStateChange() bool {
	return h.PreviousState != "" && h.PreviousState != h.NewState
}

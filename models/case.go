package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseState is the lifecycle position of a permit case
type CaseState string

// Case state constants
const (
	CaseStateRegistered        CaseState = "REGISTERED"
	CaseStateAdminReview       CaseState = "ADMIN_REVIEW"
	CaseStateTechReview        CaseState = "TECH_REVIEW"
	CaseStateObserved          CaseState = "OBSERVED"
	CaseStateCorrection        CaseState = "CORRECTION" // Applicant is addressing observations
	CaseStatePendingInspection CaseState = "PENDING_INSPECTION"
	CaseStateInInspection      CaseState = "IN_INSPECTION"
	CaseStatePaymentPending    CaseState = "PAYMENT_PENDING"
	CaseStatePaid              CaseState = "PAID"
	CaseStateApproved          CaseState = "APPROVED"
	CaseStateRejected          CaseState = "REJECTED"
	CaseStateLicenseIssued     CaseState = "LICENSE_ISSUED"
)

// AllCaseStates lists every state in lifecycle order
var AllCaseStates = []CaseState{
	CaseStateRegistered,
	CaseStateAdminReview,
	CaseStateTechReview,
	CaseStateObserved,
	CaseStateCorrection,
	CaseStatePendingInspection,
	CaseStateInInspection,
	CaseStatePaymentPending,
	CaseStatePaid,
	CaseStateApproved,
	CaseStateRejected,
	CaseStateLicenseIssued,
}

// IsTerminal reports whether no further transition is defined from this state
func (s CaseState) IsTerminal() bool {
	return s == CaseStateRejected || s == CaseStateLicenseIssued
}

// IsValidCaseState checks if the state is known
func IsValidCaseState(state string) bool {
	for _, s := range AllCaseStates {
		if string(s) == state {
			return true
		}
	}
	return false
}

// WorkType is the declared kind of construction work
type WorkType string

const (
	WorkTypeNewConstruction WorkType = "NEW_CONSTRUCTION"
	WorkTypeExtension       WorkType = "EXTENSION"
	WorkTypeMinorWork       WorkType = "MINOR_WORK"
	WorkTypeRemodel         WorkType = "REMODEL"
	WorkTypePerimeterFence  WorkType = "PERIMETER_FENCE"
	WorkTypeDemolition      WorkType = "DEMOLITION"
	WorkTypeInstitutional   WorkType = "INSTITUTIONAL" // Military / police facilities
)

// Ownership describes the applicant's title over the land
type Ownership string

const (
	OwnershipOwner       Ownership = "OWNER"
	OwnershipRightHolder Ownership = "RIGHT_HOLDER" // Holds a right to build, not the title
)

// MaxBuiltAreaModalityA is the built-area ceiling (m²) for this permit modality
const MaxBuiltAreaModalityA = 120.0

// Applicant is an immutable snapshot of the submitter taken at creation time
type Applicant struct {
	ActorID    string `gorm:"not null;index" json:"actor_id"`
	FirstNames string `gorm:"not null" json:"first_names"`
	LastNames  string `gorm:"not null" json:"last_names"`
	NationalID string `gorm:"not null" json:"national_id"`
	Email      string `gorm:"not null" json:"email"`
	Phone      string `gorm:"not null" json:"phone"`
	Address    string `json:"address,omitempty"`
}

// FullName returns the applicant's display name
func (a Applicant) FullName() string {
	return strings.TrimSpace(a.FirstNames + " " + a.LastNames)
}

// Project holds the structural attributes declared on submission.
// They are fixed once the case exists.
type Project struct {
	Name        string    `gorm:"not null" json:"name"`
	Address     string    `gorm:"not null" json:"address"`
	District    string    `gorm:"not null" json:"district"`
	WorkType    WorkType  `gorm:"not null" json:"work_type"`
	Ownership   Ownership `gorm:"not null" json:"ownership"`
	LegalEntity bool      `gorm:"not null;default:false" json:"legal_entity"`
	LandArea    float64   `json:"land_area"`
	BuiltArea   float64   `json:"built_area"`
	Levels      int       `json:"levels"`
	DeclaredUse string    `json:"declared_use,omitempty"`
}

// PaymentStatus tracks the fee sub-workflow
type PaymentStatus string

const (
	PaymentStatusUnset    PaymentStatus = ""
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
)

// DefaultPaymentMethod is the only channel the office accepts
const DefaultPaymentMethod = "BANCO_NACION"

// Payment is the optional fee record of a case
type Payment struct {
	Amount          float64       `json:"amount"`
	ProofRef        string        `json:"proof_ref,omitempty"`
	ProofName       string        `json:"proof_name,omitempty"`
	OperationNumber string        `json:"operation_number,omitempty"`
	OperationDate   *time.Time    `json:"operation_date,omitempty"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	Method          string        `json:"method,omitempty"`
	Status          PaymentStatus `json:"status"`
}

// IsAssigned reports whether an amount has been set
func (p Payment) IsAssigned() bool {
	return p.Status != PaymentStatusUnset && p.Amount > 0
}

// HasProof reports whether a payment voucher was captured
func (p Payment) HasProof() bool {
	return p.ProofRef != ""
}

// FinalLicence is the issued construction licence
type FinalLicence struct {
	FileRef      string     `json:"file_ref,omitempty"`
	OriginalName string     `json:"original_name,omitempty"`
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
	Delivered    bool       `gorm:"not null;default:false" json:"delivered"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// IsIssued reports whether a licence file is on record
func (l FinalLicence) IsIssued() bool {
	return l.FileRef != ""
}

// Case is a construction permit application and its full lifecycle record
type Case struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Format: EXP-{YEAR}-{SEQUENCE}
	CaseNumber string `gorm:"not null;uniqueIndex" json:"case_number"`

	Applicant Applicant `gorm:"embedded;embeddedPrefix:applicant_" json:"applicant"`
	Project   Project   `gorm:"embedded;embeddedPrefix:project_" json:"project"`

	State CaseState `gorm:"not null;index" json:"state"`

	Payment      Payment      `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	FinalLicence FinalLicence `gorm:"embedded;embeddedPrefix:licence_" json:"final_licence"`

	// Optimistic concurrency token, bumped by every mutation
	Version int64 `gorm:"not null" json:"version"`

	// Relationships
	Documents   []CaseDocument     `gorm:"foreignKey:CaseID" json:"documents,omitempty"`
	History     []CaseHistoryEntry `gorm:"foreignKey:CaseID" json:"history,omitempty"`
	Inspections []Inspection       `gorm:"foreignKey:CaseID" json:"inspections,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// Document returns the populated slot or nil
func (c *Case) Document(slot DocumentSlot) *CaseDocument {
	for i := range c.Documents {
		if c.Documents[i].Slot == slot {
			return &c.Documents[i]
		}
	}
	return nil
}

// HasDocument reports whether the slot is populated
func (c *Case) HasDocument(slot DocumentSlot) bool {
	return c.Document(slot) != nil
}

// PutDocument populates a slot, replacing any previous file
func (c *Case) PutDocument(doc CaseDocument) {
	doc.CaseID = c.ID
	for i := range c.Documents {
		if c.Documents[i].Slot == doc.Slot {
			c.Documents[i] = doc
			return
		}
	}
	c.Documents = append(c.Documents, doc)
}

// LastHistoryEntry returns the most recent ledger entry or nil
func (c *Case) LastHistoryEntry() *CaseHistoryEntry {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentSlot is a named, fixed category of supporting file
type DocumentSlot string

// Administrative documents
const (
	SlotPrimaryForm       DocumentSlot = "PRIMARY_FORM" // Formulario Único de Edificación
	SlotTitleCertificate  DocumentSlot = "TITLE_CERTIFICATE"
	SlotSwornDeclaration  DocumentSlot = "SWORN_DECLARATION"
	SlotRightToBuildProof DocumentSlot = "RIGHT_TO_BUILD_PROOF"
	SlotPowerOfAttorney   DocumentSlot = "POWER_OF_ATTORNEY"
	SlotPriorLicence      DocumentSlot = "PRIOR_LICENCE"
)

// Technical documents
const (
	SlotSitePlan               DocumentSlot = "SITE_PLAN"
	SlotArchitecturePlans      DocumentSlot = "ARCHITECTURE_PLANS"
	SlotSpecialtyPlans         DocumentSlot = "SPECIALTY_PLANS"
	SlotEgressSignagePlan      DocumentSlot = "EGRESS_SIGNAGE_PLAN"
	SlotDemolitionSafetyLetter DocumentSlot = "DEMOLITION_SAFETY_LETTER"
)

// AllDocumentSlots lists every slot in canonical order
var AllDocumentSlots = []DocumentSlot{
	SlotPrimaryForm,
	SlotTitleCertificate,
	SlotSwornDeclaration,
	SlotRightToBuildProof,
	SlotPowerOfAttorney,
	SlotPriorLicence,
	SlotSitePlan,
	SlotArchitecturePlans,
	SlotSpecialtyPlans,
	SlotEgressSignagePlan,
	SlotDemolitionSafetyLetter,
}

// IsValidDocumentSlot checks if the slot name is known
func IsValidDocumentSlot(slot string) bool {
	for _, s := range AllDocumentSlots {
		if string(s) == slot {
			return true
		}
	}
	return false
}

// IsTechnical reports whether the slot belongs to the technical dossier
func (s DocumentSlot) IsTechnical() bool {
	switch s {
	case SlotSitePlan, SlotArchitecturePlans, SlotSpecialtyPlans, SlotEgressSignagePlan, SlotDemolitionSafetyLetter:
		return true
	}
	return false
}

// CaseDocument is a populated document slot of a case
type CaseDocument struct {
	ID        string       `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	CaseID    string       `gorm:"type:uuid;not null;uniqueIndex:idx_case_document_slot" json:"case_id"`
	Slot      DocumentSlot `gorm:"not null;uniqueIndex:idx_case_document_slot" json:"slot"`

	// File metadata
	FileRef      string `gorm:"not null" json:"-"` // Storage key, never exposed
	OriginalName string `gorm:"not null" json:"original_name"`
	ContentType  string `json:"content_type"`
	FileSize     int64  `json:"file_size"`

	UploadedAt   time.Time `gorm:"not null" json:"uploaded_at"`
	UploadedByID string    `json:"uploaded_by_id"`
}

// BeforeCreate hook to generate UUID
func (d *CaseDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (CaseDocument) TableName() string {
	return "case_documents"
}

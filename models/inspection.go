package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inspection status constants
const (
	InspectionStatusScheduled  = "SCHEDULED"
	InspectionStatusInProgress = "IN_PROGRESS"
	InspectionStatusCompleted  = "COMPLETED"
	InspectionStatusCancelled  = "CANCELLED"
)

// Inspection type constants
const (
	InspectionTypeInitial  = "INITIAL"
	InspectionTypeFollowUp = "FOLLOW_UP"
	InspectionTypeFinal    = "FINAL"
)

// InspectionResult is the terminal verdict of a site visit
type InspectionResult string

const (
	InspectionResultPending      InspectionResult = "PENDING"
	InspectionResultCompliant    InspectionResult = "COMPLIANT"
	InspectionResultObserved     InspectionResult = "OBSERVED"
	InspectionResultNonCompliant InspectionResult = "NON_COMPLIANT"
)

// IsValidInspectionResult checks a terminal result value
func IsValidInspectionResult(result string) bool {
	switch InspectionResult(result) {
	case InspectionResultCompliant, InspectionResultObserved, InspectionResultNonCompliant:
		return true
	}
	return false
}

// IsValidInspectionType checks if the type is valid
func IsValidInspectionType(t string) bool {
	return t == InspectionTypeInitial || t == InspectionTypeFollowUp || t == InspectionTypeFinal
}

// Inspection is a site visit attached to a case
type Inspection struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID      string `gorm:"type:uuid;not null;index" json:"case_id"`
	InspectorID string `gorm:"not null;index" json:"inspector_id"`

	Type        string           `gorm:"not null" json:"type"`
	Status      string           `gorm:"not null;index" json:"status"`
	ScheduledAt time.Time        `gorm:"not null;index" json:"scheduled_at"`
	PerformedAt *time.Time       `json:"performed_at,omitempty"`
	Result      InspectionResult `gorm:"not null" json:"result"`
	Report      string           `gorm:"type:text" json:"report,omitempty"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`

	Observations []InspectionObservation `gorm:"foreignKey:InspectionID" json:"observations,omitempty"`
}

// BeforeCreate hook to generate UUID
func (i *Inspection) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// IsFinished reports whether a result has been recorded
func (i *Inspection) IsFinished() bool {
	return i.Status == InspectionStatusCompleted || i.Status == InspectionStatusCancelled
}

// InspectionObservation is a finding recorded during a visit
type InspectionObservation struct {
	ID           string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	InspectionID string    `gorm:"type:uuid;not null;index" json:"inspection_id"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Kind         string    `gorm:"not null" json:"kind"` // COMPLIANT, OBSERVATION, NON_COMPLIANT
	PhotoRefs    string    `gorm:"type:text" json:"photo_refs,omitempty"` // Comma separated storage keys
}

// BeforeCreate hook to generate UUID
func (o *InspectionObservation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

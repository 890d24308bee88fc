package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"permit_flow_app_go/models"

	"gorm.io/gorm"
)

// ScheduleInspectionInput plans a site visit
type ScheduleInspectionInput struct {
	InspectorID string    `json:"inspector_id"`
	Type        string    `json:"type"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
}

// ScheduleInspection creates an inspection for a case awaiting or under inspection.
// Inspectors schedule for themselves; administrators name the inspector.
func (s *CaseService) ScheduleInspection(ctx context.Context, actor models.Actor, caseID string, input ScheduleInspectionInput) (*models.Inspection, error) {
	var inspection models.Inspection

	_, err := s.mutate(ctx, actor, caseID, ActionScheduleInspection, func(c *models.Case) (*Mutation, error) {
		if c.State != models.CaseStatePendingInspection && c.State != models.CaseStateInInspection {
			return nil, InvalidStateError("inspections cannot be scheduled for a case in state %s", c.State)
		}

		inspectorID := strings.TrimSpace(input.InspectorID)
		if actor.Role == models.RoleInspector {
			inspectorID = actor.ID
		}
		if inspectorID == "" {
			return nil, ValidationError("inspector is required")
		}

		inspectionType := input.Type
		if inspectionType == "" {
			inspectionType = models.InspectionTypeInitial
		}
		if !models.IsValidInspectionType(inspectionType) {
			return nil, ValidationError("invalid inspection type %q", input.Type)
		}
		if input.ScheduledAt.IsZero() {
			return nil, ValidationError("scheduled date is required")
		}

		inspection = models.Inspection{
			CaseID:      c.ID,
			InspectorID: inspectorID,
			Type:        inspectionType,
			Status:      models.InspectionStatusScheduled,
			ScheduledAt: input.ScheduledAt,
			Result:      models.InspectionResultPending,
			Latitude:    input.Latitude,
			Longitude:   input.Longitude,
		}

		return &Mutation{
			Entry: models.CaseHistoryEntry{
				Action: models.HistoryActionInspectionScheduled,
				Detail: fmt.Sprintf("%s inspection scheduled for %s", inspectionType, input.ScheduledAt.Format("2006-01-02 15:04")),
			},
			Apply: func(tx *gorm.DB) error {
				return tx.Create(&inspection).Error
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &inspection, nil
}

// StartInspection marks the visit in progress and moves a case awaiting inspection into inspection
func (s *CaseService) StartInspection(ctx context.Context, actor models.Actor, inspectionID string) (*models.Inspection, error) {
	inspection, err := s.assignedInspection(ctx, actor, ActionStartInspection, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.Status != models.InspectionStatusScheduled {
		return nil, InvalidStateError("inspection is %s", inspection.Status)
	}

	_, err = s.mutate(ctx, actor, inspection.CaseID, ActionStartInspection, func(c *models.Case) (*Mutation, error) {
		t, _ := TransitionFor(ActionStartInspection)
		// A follow-up visit can start while the case is already under inspection
		if c.State != models.CaseStateInInspection {
			target, err := planTransition(c, ActionStartInspection, "")
			if err != nil {
				return nil, err
			}
			c.State = target
		}

		return &Mutation{
			Entry: models.CaseHistoryEntry{
				Action: t.HistoryAction(),
				Detail: fmt.Sprintf("%s inspection started", inspection.Type),
			},
			Apply: func(tx *gorm.DB) error {
				return updateOpenInspection(tx, inspection.ID, models.InspectionStatusScheduled, map[string]interface{}{
					"status": models.InspectionStatusInProgress,
				})
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	inspection.Status = models.InspectionStatusInProgress
	return inspection, nil
}

// ObservationInput is a finding recorded during a visit
type ObservationInput struct {
	Description string   `json:"description" validate:"required,max=2000"`
	Kind        string   `json:"kind" validate:"required,oneof=COMPLIANT OBSERVATION NON_COMPLIANT"`
	PhotoRefs   []string `json:"photo_refs"`
}

// AddObservation records a finding on an open inspection. It does not touch the case.
func (s *CaseService) AddObservation(ctx context.Context, actor models.Actor, inspectionID string, input ObservationInput) (*models.InspectionObservation, error) {
	inspection, err := s.assignedInspection(ctx, actor, ActionRecordObservation, inspectionID)
	if err != nil {
		return nil, err
	}
	if inspection.IsFinished() {
		return nil, InvalidStateError("inspection is %s", inspection.Status)
	}

	input.Description = s.sanitize(input.Description)
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}

	observation := models.InspectionObservation{
		InspectionID: inspection.ID,
		Description:  input.Description,
		Kind:         input.Kind,
		PhotoRefs:    strings.Join(input.PhotoRefs, ","),
	}
	if err := s.db.WithContext(ctx).Create(&observation).Error; err != nil {
		return nil, fmt.Errorf("failed to record observation: %w", err)
	}
	return &observation, nil
}

// FinalizeInspectionInput closes a visit with its verdict
type FinalizeInspectionInput struct {
	Result models.InspectionResult `json:"result"`
	Report string                  `json:"report"`
}

// FinalizeInspection records the verdict and drives the case: a compliant result
// returns it to technical review, anything else sends it to observed. The inspection
// update and the case transition commit together.
func (s *CaseService) FinalizeInspection(ctx context.Context, actor models.Actor, inspectionID string, input FinalizeInspectionInput) (*models.Inspection, *models.Case, error) {
	inspection, err := s.assignedInspection(ctx, actor, ActionRecordInspectionResult, inspectionID)
	if err != nil {
		return nil, nil, err
	}
	if inspection.IsFinished() {
		return nil, nil, InvalidStateError("inspection is already %s", inspection.Status)
	}
	if !models.IsValidInspectionResult(string(input.Result)) {
		return nil, nil, ValidationError("invalid inspection result %q", input.Result)
	}

	target := models.CaseStateObserved
	if input.Result == models.InspectionResultCompliant {
		target = models.CaseStateTechReview
	}
	report := s.sanitize(input.Report)
	performedAt := s.now()

	c, err := s.mutate(ctx, actor, inspection.CaseID, ActionRecordInspectionResult, func(c *models.Case) (*Mutation, error) {
		next, err := planTransition(c, ActionRecordInspectionResult, target)
		if err != nil {
			return nil, err
		}
		c.State = next

		t, _ := TransitionFor(ActionRecordInspectionResult)
		detail := fmt.Sprintf("%s inspection result: %s", inspection.Type, input.Result)
		if report != "" {
			detail += ". " + report
		}
		return &Mutation{
			Entry: models.CaseHistoryEntry{Action: t.HistoryAction(), Detail: detail},
			Apply: func(tx *gorm.DB) error {
				return updateOpenInspection(tx, inspection.ID, inspection.Status, map[string]interface{}{
					"status":       models.InspectionStatusCompleted,
					"result":       input.Result,
					"report":       report,
					"performed_at": performedAt,
				})
			},
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	inspection.Status = models.InspectionStatusCompleted
	inspection.Result = input.Result
	inspection.Report = report
	inspection.PerformedAt = &performedAt
	return inspection, c, nil
}

// InspectionFilter narrows ListInspections
type InspectionFilter struct {
	InspectorID string
	CaseID      string
	Status      string
	Date        *time.Time
}

// ListInspections returns inspections ordered by schedule. Inspectors only see their own.
func (s *CaseService) ListInspections(ctx context.Context, actor models.Actor, filter InspectionFilter) ([]models.Inspection, error) {
	if err := authorize(actor, ActionListInspections); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleInspector {
		filter.InspectorID = actor.ID
	}

	query := s.db.WithContext(ctx).Model(&models.Inspection{}).Preload("Observations")
	if filter.InspectorID != "" {
		query = query.Where("inspector_id = ?", filter.InspectorID)
	}
	if filter.CaseID != "" {
		query = query.Where("case_id = ?", filter.CaseID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Date != nil {
		day := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		query = query.Where("scheduled_at >= ? AND scheduled_at < ?", day, day.AddDate(0, 0, 1))
	}

	var inspections []models.Inspection
	if err := query.Order("scheduled_at ASC").Find(&inspections).Error; err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	return inspections, nil
}

// assignedInspection loads an inspection the actor is assigned to.
// Someone else's inspection is reported as not found.
func (s *CaseService) assignedInspection(ctx context.Context, actor models.Actor, action Action, inspectionID string) (*models.Inspection, error) {
	if err := authorize(actor, action); err != nil {
		return nil, err
	}

	var inspection models.Inspection
	err := s.db.WithContext(ctx).Preload("Observations").First(&inspection, "id = ?", inspectionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("inspection %s not found", inspectionID)
		}
		return nil, fmt.Errorf("failed to load inspection: %w", err)
	}
	if inspection.InspectorID != actor.ID {
		return nil, NotFoundError("inspection %s not found", inspectionID)
	}
	return &inspection, nil
}

// updateOpenInspection updates an inspection only if it is still in the expected status
func updateOpenInspection(tx *gorm.DB, inspectionID, expectedStatus string, updates map[string]interface{}) error {
	result := tx.Model(&models.Inspection{}).
		Where("id = ? AND status = ?", inspectionID, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update inspection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(KindConflict, "inspection %s was modified concurrently, retry", inspectionID)
	}
	return nil
}

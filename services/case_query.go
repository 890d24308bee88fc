package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"permit_flow_app_go/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CaseFilter holds list parameters
type CaseFilter struct {
	State  string
	Search string // Case number, applicant names or project name
	Page   int
	Limit  int
}

// CaseListResult is one page of cases
type CaseListResult struct {
	Cases      []models.Case `json:"cases"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

// likeEscaper keeps user input from acting as LIKE wildcards
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListCases returns the cases visible to the actor, newest first
func (s *CaseService) ListCases(ctx context.Context, actor models.Actor, filter CaseFilter) (*CaseListResult, error) {
	if err := authorize(actor, ActionViewCase); err != nil {
		return nil, err
	}
	if filter.State != "" && !models.IsValidCaseState(filter.State) {
		return nil, ValidationError("unknown state %q", filter.State)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Case{})
	if actor.Role == models.RoleApplicant {
		query = query.Where("applicant_actor_id = ?", actor.ID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(
			`LOWER(case_number) LIKE ? ESCAPE '\' OR LOWER(applicant_first_names) LIKE ? ESCAPE '\' OR `+
				`LOWER(applicant_last_names) LIKE ? ESCAPE '\' OR LOWER(project_name) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}

	var cases []models.Case
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(offset).Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	return &CaseListResult{
		Cases:      cases,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// GetCase returns a visible case with its documents and history
func (s *CaseService) GetCase(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error) {
	if err := authorize(actor, ActionViewCase); err != nil {
		return nil, err
	}
	return s.loadVisible(ctx, actor, caseID)
}

// GetHistory returns the ledger of a visible case in append order
func (s *CaseService) GetHistory(ctx context.Context, actor models.Actor, caseID string) ([]models.CaseHistoryEntry, error) {
	c, err := s.GetCase(ctx, actor, caseID)
	if err != nil {
		return nil, err
	}
	return c.History, nil
}

// CaseStatistics is the data the management report consumes
type CaseStatistics struct {
	Total               int64                      `json:"total"`
	ByState             map[models.CaseState]int64 `json:"by_state"`
	LicencesIssued      int64                      `json:"licences_issued"`
	AverageApprovalDays float64                    `json:"average_approval_days"`
}

// Statistics counts cases per state and averages the days from registration
// to the first approval or licence issuance
func (s *CaseService) Statistics(ctx context.Context, actor models.Actor) (*CaseStatistics, error) {
	if err := authorize(actor, ActionViewStatistics); err != nil {
		return nil, err
	}

	stats := &CaseStatistics{ByState: make(map[models.CaseState]int64, len(models.AllCaseStates))}
	for _, state := range models.AllCaseStates {
		stats.ByState[state] = 0
	}

	var rows []struct {
		State models.CaseState
		Count int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Case{}).
		Select("state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases by state: %w", err)
	}
	for _, row := range rows {
		stats.ByState[row.State] = row.Count
		stats.Total += row.Count
	}
	stats.LicencesIssued = stats.ByState[models.CaseStateLicenseIssued]

	var cases []models.Case
	if err := s.db.WithContext(ctx).Select("id", "created_at").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}
	created := make(map[string]models.Case, len(cases))
	for _, c := range cases {
		created[c.ID] = c
	}

	var approvals []models.CaseHistoryEntry
	if err := s.db.WithContext(ctx).
		Where("new_state IN ? AND previous_state <> new_state",
			[]models.CaseState{models.CaseStateApproved, models.CaseStateLicenseIssued}).
		Order("sequence ASC").
		Find(&approvals).Error; err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}

	seen := make(map[string]bool)
	var totalDays float64
	for _, entry := range approvals {
		c, ok := created[entry.CaseID]
		if !ok || seen[entry.CaseID] {
			continue
		}
		seen[entry.CaseID] = true
		totalDays += entry.CreatedAt.Sub(c.CreatedAt).Hours() / 24
	}
	if len(seen) > 0 {
		stats.AverageApprovalDays = math.Round(totalDays/float64(len(seen))*100) / 100
	}

	return stats, nil
}

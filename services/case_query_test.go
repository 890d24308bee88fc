package services

import (
	"context"
	"testing"
	"time"

	"permit_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := createTestCase(t, env, applicantA, validCaseInput())
	other := validCaseInput()
	other.Project.Name = "Cerco perimétrico Los Olivos"
	other.Project.WorkType = models.WorkTypePerimeterFence
	second := createTestCase(t, env, applicantA, other)
	foreign := validCaseInput()
	foreign.Applicant.FirstNames = "Bruno"
	createTestCase(t, env, applicantB, foreign)
	advance(t, env, second.ID, step{adminReviewer, ActionStartAdminReview})

	t.Run("Applicants only see their own cases", func(t *testing.T) {
		result, err := env.svc.ListCases(ctx, applicantA, CaseFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
		for _, c := range result.Cases {
			assert.Equal(t, applicantA.ID, c.Applicant.ActorID)
		}
	})

	t.Run("Staff see everything", func(t *testing.T) {
		result, err := env.svc.ListCases(ctx, adminReviewer, CaseFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Total)
		assert.Equal(t, defaultPageSize, result.Limit)
		assert.Equal(t, 1, result.TotalPages)
	})

	t.Run("Filter by state", func(t *testing.T) {
		result, err := env.svc.ListCases(ctx, adminReviewer, CaseFilter{State: string(models.CaseStateAdminReview)})
		require.NoError(t, err)
		require.Len(t, result.Cases, 1)
		assert.Equal(t, second.ID, result.Cases[0].ID)

		_, err = env.svc.ListCases(ctx, adminReviewer, CaseFilter{State: "LOST"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Search by case number and project", func(t *testing.T) {
		result, err := env.svc.ListCases(ctx, adminReviewer, CaseFilter{Search: first.CaseNumber})
		require.NoError(t, err)
		require.Len(t, result.Cases, 1)
		assert.Equal(t, first.ID, result.Cases[0].ID)

		result, err = env.svc.ListCases(ctx, adminReviewer, CaseFilter{Search: "olivos"})
		require.NoError(t, err)
		require.Len(t, result.Cases, 1)
		assert.Equal(t, second.ID, result.Cases[0].ID)
	})

	t.Run("Pagination", func(t *testing.T) {
		result, err := env.svc.ListCases(ctx, adminReviewer, CaseFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, result.Cases, 1)
		assert.Equal(t, 2, result.TotalPages)

		result, err = env.svc.ListCases(ctx, adminReviewer, CaseFilter{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, maxPageSize, result.Limit)
	})
}

func TestListCasesSearchIsLiteral(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plain := createTestCase(t, env, applicantA, validCaseInput())
	percent := validCaseInput()
	percent.Project.Name = "Ampliación 100% techada"
	withPercent := createTestCase(t, env, applicantA, percent)
	underscore := validCaseInput()
	underscore.Project.Name = "Lote_7 Las Flores"
	withUnderscore := createTestCase(t, env, applicantA, underscore)
	backslash := validCaseInput()
	backslash.Project.Name = `Bloque A\B`
	withBackslash := createTestCase(t, env, applicantA, backslash)

	tests := []struct {
		search string
		want   []string
	}{
		{"%", []string{withPercent.ID}},
		{"100%", []string{withPercent.ID}},
		{"_", []string{withUnderscore.ID}},
		{"lote_7", []string{withUnderscore.ID}},
		{"vivienda_unifamiliar", nil},
		{`\`, []string{withBackslash.ID}},
		{"Vivienda", []string{plain.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			result, err := env.svc.ListCases(ctx, adminReviewer, CaseFilter{Search: tt.search})
			require.NoError(t, err)

			var got []string
			for _, c := range result.Cases {
				got = append(got, c.ID)
			}
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, int64(len(tt.want)), result.Total)
		})
	}
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := caseInTechReview(t, env)

	history, err := env.svc.GetHistory(ctx, applicantA, c.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, models.HistoryActionCaseCreated, history[0].Action)
	assert.Equal(t, models.CaseStateTechReview, history[len(history)-1].NewState)

	_, err = env.svc.GetHistory(ctx, applicantB, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Statistics(ctx, adminReviewer)
	assert.ErrorIs(t, err, ErrForbidden)

	stats, err := env.svc.Statistics(ctx, administrator)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Len(t, stats.ByState, len(models.AllCaseStates))

	// Registered three days before it is licensed
	created := time.Now().Add(-72 * time.Hour)
	env.svc.now = func() time.Time { return created }
	env.svc.store.now = env.svc.now
	c := createTestCase(t, env, applicantA, validCaseInput())
	attachRequired(t, env, applicantA, c)
	createTestCase(t, env, applicantB, validCaseInput())

	env.svc.now = time.Now
	env.svc.store.now = time.Now
	_, err = env.svc.IssueLicence(ctx, administrator, c.ID, pdfFile("licencia.pdf"))
	require.NoError(t, err)

	stats, err = env.svc.Statistics(ctx, administrator)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByState[models.CaseStateRegistered])
	assert.Equal(t, int64(1), stats.ByState[models.CaseStateLicenseIssued])
	assert.Equal(t, int64(1), stats.LicencesIssued)
	assert.InDelta(t, 3.0, stats.AverageApprovalDays, 0.05)
}

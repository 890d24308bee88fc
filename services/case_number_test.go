package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFormatCaseNumber(t *testing.T) {
	assert.Equal(t, "EXP-2026-000042", FormatCaseNumber(2026, 42))
	assert.Equal(t, "EXP-2026-123456", FormatCaseNumber(2026, 123456))
}

func TestParseCaseNumber(t *testing.T) {
	year, seq, err := ParseCaseNumber("EXP-2026-000042")
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 42, seq)

	invalid := []string{
		"",
		"EXP-2026-42",
		"LIC-2026-000042",
		"EXP-26-000042",
		"EXP-026-000042",
		"EXP-20260-000042",
		"EXP-2026-0000042",
		"EXP-2026-000042x",
		" EXP-2026-000042",
		"EXP-+026-000042",
	}
	for _, number := range invalid {
		_, _, err := ParseCaseNumber(number)
		assert.Error(t, err, number)
	}
}

func TestNextCaseNumber(t *testing.T) {
	db := setupTestDB(t)

	next := func(year int) string {
		var number string
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = NextCaseNumber(tx, year)
			return err
		})
		require.NoError(t, err)
		return number
	}

	assert.Equal(t, "EXP-2026-000001", next(2026))
	assert.Equal(t, "EXP-2026-000002", next(2026))
	// Each year has its own sequence
	assert.Equal(t, "EXP-2027-000001", next(2027))
	assert.Equal(t, "EXP-2026-000003", next(2026))
}

func TestNextCaseNumberRollbackReleasesNumber(t *testing.T) {
	db := setupTestDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := NextCaseNumber(tx, 2026); err != nil {
			return err
		}
		return fmt.Errorf("creation failed")
	})
	require.Error(t, err)

	var number string
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		number, err = NextCaseNumber(tx, 2026)
		return err
	}))
	assert.Equal(t, "EXP-2026-000001", number)
}

func TestConcurrentCaseCreationYieldsDistinctNumbers(t *testing.T) {
	assertDistinctNumbers(t, newTestEnv(t), 12)
}

func TestConcurrentCaseCreationOnSharedDatabase(t *testing.T) {
	assertDistinctNumbers(t, newTestEnvOn(t, setupSharedTestDB(t)), 20)
}

// assertDistinctNumbers creates n cases in parallel and expects the sequence 1..n
func assertDistinctNumbers(t *testing.T, env *testEnv, n int) {
	t.Helper()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := env.svc.CreateCase(context.Background(), applicantA, validCaseInput())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, c.CaseNumber)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, numbers, n)

	year := time.Now().Year()
	seen := make(map[int]bool)
	for _, number := range numbers {
		y, seq, err := ParseCaseNumber(number)
		require.NoError(t, err)
		assert.Equal(t, year, y)
		assert.False(t, seen[seq], "duplicate sequence %d", seq)
		seen[seq] = true
	}
	// Nothing rolled back, so the sequence is gapless
	for seq := 1; seq <= n; seq++ {
		assert.True(t, seen[seq], "missing sequence %d", seq)
	}
}

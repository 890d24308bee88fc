package services

import (
	"fmt"
	"regexp"
	"strconv"

	"permit_flow_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseNumberPrefix starts every case number
const CaseNumberPrefix = "EXP"

// FormatCaseNumber renders a case number
// Format: EXP-{YEAR}-{SEQUENCE}
// Example: EXP-2026-000042
func FormatCaseNumber(year, sequence int) string {
	return fmt.Sprintf("%s-%d-%06d", CaseNumberPrefix, year, sequence)
}

var caseNumberPattern = regexp.MustCompile(`^` + CaseNumberPrefix + `-(\d{4})-(\d{6})$`)

// ParseCaseNumber extracts the year and sequence from a case number
func ParseCaseNumber(number string) (year int, sequence int, err error) {
	m := caseNumberPattern.FindStringSubmatch(number)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid case number %q", number)
	}
	year, _ = strconv.Atoi(m[1])
	sequence, _ = strconv.Atoi(m[2])
	return year, sequence, nil
}

// NextCaseNumber takes the next sequence for the year from the durable counter.
// It must run inside the transaction that creates the case: the counter row stays
// locked until commit, so concurrent creations in one year are serialized on it and a
// rolled back creation gives its number back.
func NextCaseNumber(tx *gorm.DB, year int) (string, error) {
	counter := models.CaseCounter{Year: year, LastSequence: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_sequence": gorm.Expr("case_counters.last_sequence + 1"),
		}),
	}).Create(&counter).Error
	if err != nil {
		return "", fmt.Errorf("failed to advance case counter: %w", err)
	}

	var current models.CaseCounter
	if err := tx.Where("year = ?", year).First(&current).Error; err != nil {
		return "", fmt.Errorf("failed to read case counter: %w", err)
	}

	return FormatCaseNumber(year, current.LastSequence), nil
}

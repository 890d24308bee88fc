package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"permit_flow_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaseStore persists cases with optimistic versioning and keeps the ledger
// append in the same transaction as every write.
type CaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCaseStore creates a store over the given database
func NewCaseStore(db *gorm.DB) *CaseStore {
	return &CaseStore{db: db, now: time.Now}
}

// Mutation is a change to a loaded case, applied by Save
type Mutation struct {
	// Entry is appended to the ledger. CaseID, Sequence, NewState and CreatedAt are filled in.
	Entry models.CaseHistoryEntry
	// Documents are slots to upsert along with the case row
	Documents []models.CaseDocument
	// Apply runs extra writes inside the transaction (inspections and the like)
	Apply func(tx *gorm.DB) error
	// Cleanup runs when the mutation fails to commit, for side effects done before Save
	Cleanup func()
}

// Create assigns the case number and persists a new case with its first ledger entry
func (s *CaseStore) Create(ctx context.Context, c *models.Case, entry models.CaseHistoryEntry) error {
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := NextCaseNumber(tx, now.Year())
		if err != nil {
			return err
		}

		c.CaseNumber = number
		c.State = models.CaseStateRegistered
		c.Version = 1
		c.CreatedAt = now
		if err := tx.Omit("History", "Inspections").Create(c).Error; err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}

		entry.CaseID = c.ID
		entry.Sequence = 1
		entry.NewState = c.State
		entry.CreatedAt = now
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		c.History = []models.CaseHistoryEntry{entry}
		return nil
	})
	if err != nil {
		return err
	}

	casesCreated.Inc()
	return nil
}

// Get loads a case with its documents and ordered history
func (s *CaseStore) Get(ctx context.Context, id string) (*models.Case, error) {
	var c models.Case
	err := s.db.WithContext(ctx).
		Preload("Documents").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("case %s not found", id)
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return &c, nil
}

// Save writes a case modified in memory since it was loaded. The update is
// conditioned on the version read at load time; a mismatch fails with a
// conflict and leaves the stored case untouched.
func (s *CaseStore) Save(ctx context.Context, c *models.Case, m Mutation) error {
	expected := c.Version
	now := s.now()
	entry := m.Entry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.Version = expected + 1
		result := tx.Model(c).
			Where("version = ?", expected).
			Select("*").
			Omit("ID", "CreatedAt", "CaseNumber", clause.Associations).
			Updates(c)
		if result.Error != nil {
			return fmt.Errorf("failed to update case: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Case{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check case: %w", err)
			}
			if count == 0 {
				return NotFoundError("case %s not found", c.ID)
			}
			caseConflicts.Inc()
			return ConflictError(c.ID)
		}

		for i := range m.Documents {
			doc := m.Documents[i]
			doc.CaseID = c.ID
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "case_id"}, {Name: "slot"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"id", "file_ref", "original_name", "content_type", "file_size",
					"uploaded_at", "uploaded_by_id", "updated_at",
				}),
			}).Create(&doc).Error
			if err != nil {
				return fmt.Errorf("failed to store document %s: %w", doc.Slot, err)
			}
			if stored := c.Document(doc.Slot); stored != nil {
				stored.ID = doc.ID
			}
		}

		var lastSequence int
		if err := tx.Model(&models.CaseHistoryEntry{}).
			Where("case_id = ?", c.ID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&lastSequence).Error; err != nil {
			return fmt.Errorf("failed to read history sequence: %w", err)
		}

		entry.CaseID = c.ID
		entry.Sequence = lastSequence + 1
		entry.NewState = c.State
		entry.CreatedAt = now
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		if m.Apply != nil {
			return m.Apply(tx)
		}
		return nil
	})
	if err != nil {
		c.Version = expected
		if m.Cleanup != nil {
			m.Cleanup()
		}
		return err
	}

	c.History = append(c.History, entry)
	return nil
}

package services

import (
	"context"
	"fmt"
	"io"

	"permit_flow_app_go/models"
)

// AttachDocument populates a document slot, replacing any file already there.
// The blob is stored before the case write; if the write fails it is removed again.
func (s *CaseService) AttachDocument(ctx context.Context, actor models.Actor, caseID string, slot models.DocumentSlot, f *FileUpload) (*models.CaseDocument, error) {
	var attached models.CaseDocument

	_, err := s.mutate(ctx, actor, caseID, ActionAttachDocument, func(c *models.Case) (*Mutation, error) {
		if !models.IsValidDocumentSlot(string(slot)) {
			return nil, ValidationError("unknown document slot %q", slot)
		}
		if c.State.IsTerminal() {
			return nil, InvalidStateError("documents cannot be attached to a case in state %s", c.State)
		}
		mimeType, err := ValidateDocumentUpload(f, s.maxUpload)
		if err != nil {
			return nil, err
		}

		key := GenerateCaseDocumentKey(c.ID, string(slot), extensionFor(mimeType, f.Filename))
		ref, err := storeFile(ctx, s.storage, key, mimeType, f)
		if err != nil {
			return nil, err
		}

		replaced := c.HasDocument(slot)
		attached = models.CaseDocument{
			CaseID:       c.ID,
			Slot:         slot,
			FileRef:      ref,
			OriginalName: f.Filename,
			ContentType:  mimeType,
			FileSize:     f.Size(),
			UploadedAt:   s.now(),
			UploadedByID: actor.ID,
		}
		c.PutDocument(attached)

		detail := fmt.Sprintf("%s: %s", slot, f.Filename)
		if replaced {
			detail += " (replaced)"
		}
		return &Mutation{
			Entry:     models.CaseHistoryEntry{Action: models.HistoryActionDocumentAttached, Detail: detail},
			Documents: []models.CaseDocument{attached},
			Cleanup:   func() { discardFile(s.storage, ref) },
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &attached, nil
}

// CheckDocuments evaluates document completeness for a visible case
func (s *CaseService) CheckDocuments(ctx context.Context, actor models.Actor, caseID string) (*CompletenessReport, error) {
	if err := authorize(actor, ActionViewCase); err != nil {
		return nil, err
	}
	c, err := s.loadVisible(ctx, actor, caseID)
	if err != nil {
		return nil, err
	}
	report := CheckCompleteness(c)
	return &report, nil
}

// OpenDocument returns the stored file of a populated slot. The caller closes the reader.
func (s *CaseService) OpenDocument(ctx context.Context, actor models.Actor, caseID string, slot models.DocumentSlot) (io.ReadCloser, *models.CaseDocument, error) {
	if err := authorize(actor, ActionViewCase); err != nil {
		return nil, nil, err
	}
	c, err := s.loadVisible(ctx, actor, caseID)
	if err != nil {
		return nil, nil, err
	}

	doc := c.Document(slot)
	if doc == nil {
		return nil, nil, NotFoundError("document slot %s is empty", slot)
	}

	reader, _, err := s.storage.Get(ctx, doc.FileRef)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document: %w", err)
	}
	return reader, doc, nil
}

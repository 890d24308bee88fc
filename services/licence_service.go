package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"permit_flow_app_go/logging"
	"permit_flow_app_go/models"

	"github.com/sirupsen/logrus"
)

// deliveryAttempts bounds the retries of the delivery bookkeeping write on conflict
const deliveryAttempts = 3

// IssueLicence stores the licence PDF and moves the case to LICENSE_ISSUED from
// whatever state it is in. Only document completeness is enforced. Re-issuing replaces the file and resets delivery.
// Delivery to the applicant happens asynchronously and never affects the issuance.
func (s *CaseService) IssueLicence(ctx context.Context, actor models.Actor, caseID string, f *FileUpload) (*models.Case, error) {
	c, err := s.mutate(ctx, actor, caseID, ActionIssueLicence, func(c *models.Case) (*Mutation, error) {
		if err := ValidatePDFUpload(f, s.maxUpload); err != nil {
			return nil, err
		}
		target, err := planTransition(c, ActionIssueLicence, "")
		if err != nil {
			return nil, err
		}

		ref, err := storeFile(ctx, s.storage, GenerateLicenceKey(c.ID), MimeTypePDF, f)
		if err != nil {
			return nil, err
		}

		issuedAt := s.now()
		previous := c.State
		c.State = target
		c.FinalLicence = models.FinalLicence{
			FileRef:      ref,
			OriginalName: f.Filename,
			IssuedAt:     &issuedAt,
		}

		t, _ := TransitionFor(ActionIssueLicence)
		return &Mutation{
			Entry: models.CaseHistoryEntry{
				Action: t.HistoryAction(),
				Detail: fmt.Sprintf("Licence %s issued from state %s", f.Filename, previous),
			},
			Cleanup: func() { discardFile(s.storage, ref) },
		}, nil
	})
	if err != nil {
		return nil, err
	}

	ref := c.FinalLicence.FileRef
	s.emit(BuildLicenceIssuedEmail(c, f.Data), func(err error) {
		if err != nil {
			return
		}
		s.recordLicenceDelivered(c.ID, ref)
	})
	return c, nil
}

// recordLicenceDelivered marks the licence identified by ref as delivered.
// A licence re-issued in the meantime is left alone.
func (s *CaseService) recordLicenceDelivered(caseID, ref string) {
	ctx := context.Background()
	log := logging.Log.WithFields(logrus.Fields{"case_id": caseID, "licence": ref})

	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		c, err := s.store.Get(ctx, caseID)
		if err != nil {
			log.WithError(err).Error("Failed to load case to record licence delivery")
			return
		}
		if c.FinalLicence.FileRef != ref || c.FinalLicence.Delivered {
			return
		}

		deliveredAt := s.now()
		c.FinalLicence.Delivered = true
		c.FinalLicence.DeliveredAt = &deliveredAt
		err = s.store.Save(ctx, c, Mutation{Entry: models.CaseHistoryEntry{
			Action:        models.HistoryActionLicenceDelivered,
			ActorID:       models.SystemActor.ID,
			ActorRole:     models.SystemActor.Role,
			PreviousState: c.State,
			Detail:        "Licence delivered to " + c.Applicant.Email,
		}})
		if err == nil {
			log.Info("Licence delivery recorded")
			return
		}
		if !errors.Is(err, ErrConflict) {
			log.WithError(err).Error("Failed to record licence delivery")
			return
		}
	}
	log.Warn("Gave up recording licence delivery after repeated conflicts")
}

// OpenLicence returns the issued licence file. The caller closes the reader.
func (s *CaseService) OpenLicence(ctx context.Context, actor models.Actor, caseID string) (io.ReadCloser, *models.FinalLicence, error) {
	if err := authorize(actor, ActionDownloadLicence); err != nil {
		return nil, nil, err
	}
	c, err := s.loadVisible(ctx, actor, caseID)
	if err != nil {
		return nil, nil, err
	}
	if !c.FinalLicence.IsIssued() {
		return nil, nil, NotFoundError("no licence has been issued for case %s", c.CaseNumber)
	}

	reader, _, err := s.storage.Get(ctx, c.FinalLicence.FileRef)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open licence: %w", err)
	}
	return reader, &c.FinalLicence, nil
}

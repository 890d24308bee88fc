package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"permit_flow_app_go/logging"
	"permit_flow_app_go/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CaseService runs every operation on permit cases: authorization, guards,
// versioned persistence, ledger and notifications.
type CaseService struct {
	db         *gorm.DB
	store      *CaseStore
	storage    StorageProvider
	dispatcher *Dispatcher
	validate   *validator.Validate
	sanitizer  *bluemonday.Policy
	maxUpload  int64
	now        func() time.Time
}

// NewCaseService wires the engine. dispatcher may be nil, in which case nothing is notified.
func NewCaseService(db *gorm.DB, storage StorageProvider, dispatcher *Dispatcher) *CaseService {
	return &CaseService{
		db:         db,
		store:      NewCaseStore(db),
		storage:    storage,
		dispatcher: dispatcher,
		validate:   validator.New(),
		sanitizer:  bluemonday.StrictPolicy(),
		maxUpload:  MaxUploadSize,
		now:        time.Now,
	}
}

// SetMaxUploadSize overrides the upload cap
func (s *CaseService) SetMaxUploadSize(size int64) {
	if size > 0 {
		s.maxUpload = size
	}
}

// ApplicantInput is the submitter identity captured at creation
type ApplicantInput struct {
	FirstNames string `json:"first_names" validate:"required,max=100"`
	LastNames  string `json:"last_names" validate:"required,max=100"`
	NationalID string `json:"national_id" validate:"required,numeric,min=8,max=11"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=6,max=20"`
	Address    string `json:"address" validate:"max=200"`
}

// ProjectInput is the declared project
type ProjectInput struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Address     string           `json:"address" validate:"required,max=200"`
	District    string           `json:"district" validate:"required,max=100"`
	WorkType    models.WorkType  `json:"work_type" validate:"required,oneof=NEW_CONSTRUCTION EXTENSION MINOR_WORK REMODEL PERIMETER_FENCE DEMOLITION INSTITUTIONAL"`
	Ownership   models.Ownership `json:"ownership" validate:"required,oneof=OWNER RIGHT_HOLDER"`
	LegalEntity bool             `json:"legal_entity"`
	LandArea    float64          `json:"land_area" validate:"gt=0"`
	BuiltArea   float64          `json:"built_area" validate:"gt=0"`
	Levels      int              `json:"levels" validate:"gte=1"`
	DeclaredUse string           `json:"declared_use" validate:"max=200"`
}

// CreateCaseInput is a new submission. Documents are optional at this point.
type CreateCaseInput struct {
	Applicant ApplicantInput                      `json:"applicant"`
	Project   ProjectInput                        `json:"project"`
	Documents map[models.DocumentSlot]*FileUpload `json:"-"`
}

// CreateCase registers a new case owned by the calling applicant
func (s *CaseService) CreateCase(ctx context.Context, actor models.Actor, input CreateCaseInput) (*models.Case, error) {
	if err := authorize(actor, ActionCreateCase); err != nil {
		return nil, err
	}
	if err := s.validateStruct(input); err != nil {
		return nil, err
	}
	if input.Project.BuiltArea > models.MaxBuiltAreaModalityA {
		return nil, ValidationError("built area %.2f m² exceeds the %.2f m² limit for this permit modality",
			input.Project.BuiltArea, models.MaxBuiltAreaModalityA)
	}

	c := &models.Case{
		ID: uuid.New().String(),
		Applicant: models.Applicant{
			ActorID:    actor.ID,
			FirstNames: strings.TrimSpace(input.Applicant.FirstNames),
			LastNames:  strings.TrimSpace(input.Applicant.LastNames),
			NationalID: input.Applicant.NationalID,
			Email:      strings.ToLower(strings.TrimSpace(input.Applicant.Email)),
			Phone:      input.Applicant.Phone,
			Address:    input.Applicant.Address,
		},
		Project: models.Project{
			Name:        strings.TrimSpace(input.Project.Name),
			Address:     input.Project.Address,
			District:    input.Project.District,
			WorkType:    input.Project.WorkType,
			Ownership:   input.Project.Ownership,
			LegalEntity: input.Project.LegalEntity,
			LandArea:    input.Project.LandArea,
			BuiltArea:   input.Project.BuiltArea,
			Levels:      input.Project.Levels,
			DeclaredUse: input.Project.DeclaredUse,
		},
	}

	docs, err := s.storeInitialDocuments(ctx, actor, c.ID, input.Documents)
	if err != nil {
		return nil, err
	}
	c.Documents = docs

	entry := models.CaseHistoryEntry{
		Action:    models.HistoryActionCaseCreated,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Detail:    fmt.Sprintf("Case registered with %d document(s)", len(docs)),
	}
	if err := s.store.Create(ctx, c, entry); err != nil {
		for _, d := range docs {
			discardFile(s.storage, d.FileRef)
		}
		return nil, err
	}

	logging.Log.WithFields(logrus.Fields{
		"case_id":     c.ID,
		"case_number": c.CaseNumber,
		"actor_id":    actor.ID,
	}).Info("Case registered")

	s.emit(BuildCaseRegisteredEmail(c), nil)
	return c, nil
}

// storeInitialDocuments validates every file first, then uploads them concurrently.
// Any failure removes what was already uploaded.
func (s *CaseService) storeInitialDocuments(ctx context.Context, actor models.Actor, caseID string, files map[models.DocumentSlot]*FileUpload) ([]models.CaseDocument, error) {
	if len(files) == 0 {
		return nil, nil
	}

	slots := make([]models.DocumentSlot, 0, len(files))
	mimeTypes := make(map[models.DocumentSlot]string, len(files))
	for slot, f := range files {
		if !models.IsValidDocumentSlot(string(slot)) {
			return nil, ValidationError("unknown document slot %q", slot)
		}
		mimeType, err := ValidateDocumentUpload(f, s.maxUpload)
		if err != nil {
			return nil, err
		}
		mimeTypes[slot] = mimeType
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	docs := make([]models.CaseDocument, len(slots))
	now := s.now()
	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		f := files[slot]
		mimeType := mimeTypes[slot]
		g.Go(func() error {
			key := GenerateCaseDocumentKey(caseID, string(slot), extensionFor(mimeType, f.Filename))
			ref, err := storeFile(gctx, s.storage, key, mimeType, f)
			if err != nil {
				return err
			}
			docs[i] = models.CaseDocument{
				Slot:         slot,
				FileRef:      ref,
				OriginalName: f.Filename,
				ContentType:  mimeType,
				FileSize:     f.Size(),
				UploadedAt:   now,
				UploadedByID: actor.ID,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, d := range docs {
			if d.FileRef != "" {
				discardFile(s.storage, d.FileRef)
			}
		}
		return nil, err
	}
	return docs, nil
}

// Transition applies a state machine action that needs no payload beyond a detail note
func (s *CaseService) Transition(ctx context.Context, actor models.Actor, caseID string, action Action, detail string) (*models.Case, error) {
	t, ok := TransitionFor(action)
	if !ok {
		return nil, ValidationError("unknown transition %q", action)
	}
	detail = s.sanitize(detail)

	return s.mutate(ctx, actor, caseID, action, func(c *models.Case) (*Mutation, error) {
		if t.Payload {
			return nil, ValidationError("%s requires its dedicated operation", action)
		}
		if (action == ActionObserve || action == ActionReject) && detail == "" {
			return nil, ValidationError("%s requires a reason", action)
		}
		target, err := planTransition(c, action, "")
		if err != nil {
			return nil, err
		}
		c.State = target
		return &Mutation{Entry: models.CaseHistoryEntry{Action: t.HistoryAction(), Detail: detail}}, nil
	})
}

// caseChange mutates a loaded, visible case in memory and describes what to persist
type caseChange func(c *models.Case) (*Mutation, error)

// mutate runs the common operation contract: role gate, load, guard, versioned
// write with its ledger entry, then notification.
func (s *CaseService) mutate(ctx context.Context, actor models.Actor, caseID string, action Action, change caseChange) (*models.Case, error) {
	if err := authorize(actor, action); err != nil {
		return nil, err
	}

	c, err := s.loadVisible(ctx, actor, caseID)
	if err != nil {
		return nil, err
	}

	previous := c.State
	m, err := change(c)
	if err != nil {
		return nil, err
	}

	m.Entry.ActorID = actor.ID
	m.Entry.ActorRole = actor.Role
	m.Entry.PreviousState = previous
	if err := s.store.Save(ctx, c, *m); err != nil {
		if errors.Is(err, ErrConflict) {
			logging.Log.WithFields(logrus.Fields{"case_id": caseID, "action": action}).Warn("Case version conflict")
		}
		return nil, err
	}

	fields := logrus.Fields{
		"case_id":  c.ID,
		"action":   action,
		"actor_id": actor.ID,
		"version":  c.Version,
	}
	if c.State != previous {
		caseTransitions.WithLabelValues(string(action), string(previous), string(c.State)).Inc()
		fields["from"] = previous
		fields["to"] = c.State
		if action != ActionIssueLicence {
			s.emit(BuildStateChangedEmail(c, previous, m.Entry.Detail), nil)
		}
	}
	logging.Log.WithFields(fields).Info("Case updated")

	return c, nil
}

// loadVisible fetches a case the actor may see. Invisible and absent cases fail alike.
func (s *CaseService) loadVisible(ctx context.Context, actor models.Actor, caseID string) (*models.Case, error) {
	c, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, c) {
		return nil, NotFoundError("case %s not found", caseID)
	}
	return c, nil
}

func (s *CaseService) emit(n Notification, onResult func(err error)) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Emit(n, onResult)
}

// sanitize strips markup from free text and keeps it as plain text
func (s *CaseService) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *CaseService) validateStruct(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ValidationError("%s", validationErrs.Error())
		}
		return ValidationError("%s", err.Error())
	}
	return nil
}

package services

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"permit_flow_app_go/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockStorageProvider is a mock implementation of StorageProvider
type MockStorageProvider struct {
	mock.Mock
}

var _ StorageProvider = (*MockStorageProvider)(nil)

func (m *MockStorageProvider) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error) {
	args := m.Called(ctx, reader, key, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StorageResult), args.Error(1)
}

func (m *MockStorageProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorageProvider) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

// recordingNotifier keeps every notification it is asked to deliver
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *recordingNotifier) Kinds() []string {
	var kinds []string
	for _, n := range r.Sent() {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// setupTestDB opens an in-memory database. A single connection keeps every
// goroutine on the same database, so concurrent callers are serialized.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, ":memory:", 1)
}

// setupSharedTestDB opens a WAL database file behind several connections, so
// concurrent transactions really race for the write lock
func setupSharedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "permits.db") + "?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
	return openTestDB(t, dsn, 8)
}

func openTestDB(t *testing.T, dsn string, maxConns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Case{},
		&models.CaseDocument{},
		&models.CaseHistoryEntry{},
		&models.CaseCounter{},
		&models.Inspection{},
		&models.InspectionObservation{},
	))
	return db
}

type testEnv struct {
	db         *gorm.DB
	svc        *CaseService
	storage    *LocalStorage
	notifier   *recordingNotifier
	dispatcher *Dispatcher
}

// newTestEnv wires a service over sqlite, a temp dir and a recording notifier
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, setupTestDB(t))
}

func newTestEnvOn(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	storage := NewLocalStorage(t.TempDir())
	notifier := &recordingNotifier{}
	dispatcher := NewDispatcher(notifier, 1, 64)
	t.Cleanup(dispatcher.Close)

	return &testEnv{
		db:         db,
		svc:        NewCaseService(db, storage, dispatcher),
		storage:    storage,
		notifier:   notifier,
		dispatcher: dispatcher,
	}
}

// drain waits for every queued notification to be delivered
func (e *testEnv) drain() {
	e.dispatcher.Close()
}

var (
	applicantA    = models.Actor{ID: "applicant-a", Role: models.RoleApplicant, Email: "ana@example.com", Name: "Ana Quispe"}
	applicantB    = models.Actor{ID: "applicant-b", Role: models.RoleApplicant, Email: "bruno@example.com", Name: "Bruno Rojas"}
	adminReviewer = models.Actor{ID: "reviewer-1", Role: models.RoleAdminReviewer}
	techReviewer  = models.Actor{ID: "engineer-1", Role: models.RoleTechReviewer}
	inspector     = models.Actor{ID: "inspector-1", Role: models.RoleInspector}
	administrator = models.Actor{ID: "admin-1", Role: models.RoleAdministrator}
)

func pdfFile(name string) *FileUpload {
	return &FileUpload{
		Filename:    name,
		ContentType: MimeTypePDF,
		Data:        append([]byte("%PDF-1.4\n"), make([]byte, 64)...),
	}
}

func pngFile(name string) *FileUpload {
	return &FileUpload{
		Filename:    name,
		ContentType: MimeTypePNG,
		Data:        append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...),
	}
}

func validCaseInput() CreateCaseInput {
	return CreateCaseInput{
		Applicant: ApplicantInput{
			FirstNames: "Ana María",
			LastNames:  "Quispe Huamán",
			NationalID: "45678912",
			Email:      "Ana@Example.com",
			Phone:      "987654321",
			Address:    "Av. Grau 123",
		},
		Project: ProjectInput{
			Name:        "Vivienda unifamiliar",
			Address:     "Jr. Lima 456",
			District:    "Cercado",
			WorkType:    models.WorkTypeNewConstruction,
			Ownership:   models.OwnershipOwner,
			LandArea:    160,
			BuiltArea:   100,
			Levels:      2,
			DeclaredUse: "Vivienda",
		},
	}
}

func createTestCase(t *testing.T, env *testEnv, actor models.Actor, input CreateCaseInput) *models.Case {
	t.Helper()
	c, err := env.svc.CreateCase(context.Background(), actor, input)
	require.NoError(t, err)
	return c
}

// attachRequired populates every mandatory slot of the case
func attachRequired(t *testing.T, env *testEnv, actor models.Actor, c *models.Case) {
	t.Helper()
	for _, slot := range CheckCompleteness(c).Missing {
		_, err := env.svc.AttachDocument(context.Background(), actor, c.ID, slot, pdfFile(string(slot)+".pdf"))
		require.NoError(t, err)
	}
}

// reload reads the stored case directly
func reload(t *testing.T, env *testEnv, id string) *models.Case {
	t.Helper()
	c, err := env.svc.store.Get(context.Background(), id)
	require.NoError(t, err)
	return c
}

type step struct {
	actor  models.Actor
	action Action
}

// advance applies a sequence of plain transitions, failing the test on any error
func advance(t *testing.T, env *testEnv, caseID string, steps ...step) *models.Case {
	t.Helper()
	var c *models.Case
	for _, st := range steps {
		var err error
		c, err = env.svc.Transition(context.Background(), st.actor, caseID, st.action, "ok")
		require.NoError(t, err, "step %s", st.action)
	}
	return c
}

// caseInTechReview creates a document-complete case and moves it to TECH_REVIEW
func caseInTechReview(t *testing.T, env *testEnv) *models.Case {
	t.Helper()
	c := createTestCase(t, env, applicantA, validCaseInput())
	attachRequired(t, env, applicantA, c)
	return advance(t, env, c.ID,
		step{adminReviewer, ActionStartAdminReview},
		step{adminReviewer, ActionApproveAdminReview},
	)
}

// caseAwaitingPayment moves a case to PAYMENT_PENDING with an amount assigned
func caseAwaitingPayment(t *testing.T, env *testEnv) *models.Case {
	t.Helper()
	c := caseInTechReview(t, env)
	advance(t, env, c.ID, step{techReviewer, ActionApproveTechReview})
	c, err := env.svc.AssignAmount(context.Background(), administrator, c.ID, 350.50)
	require.NoError(t, err)
	return c
}

func proofInput() ProofInput {
	return ProofInput{
		File:            pngFile("voucher.png"),
		OperationNumber: "0012345",
		OperationDate:   time.Now().Add(-time.Hour),
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"permit_flow_app_go/db"
	"permit_flow_app_go/middleware"
	"permit_flow_app_go/models"
	"permit_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "handlers-test-secret-at-least-32-chars"

var (
	applicantA    = models.Actor{ID: "applicant-a", Role: models.RoleApplicant, Email: "ana@example.com"}
	applicantB    = models.Actor{ID: "applicant-b", Role: models.RoleApplicant, Email: "bruno@example.com"}
	adminReviewer = models.Actor{ID: "reviewer-1", Role: models.RoleAdminReviewer}
	administrator = models.Actor{ID: "admin-1", Role: models.RoleAdministrator}
)

// channelNotifier hands every notification to the test
type channelNotifier struct {
	sent chan services.Notification
}

func (n *channelNotifier) Notify(ctx context.Context, notification services.Notification) error {
	n.sent <- notification
	return nil
}

type testServer struct {
	echo     *echo.Echo
	notifier *channelNotifier
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database))
	return database
}

// newTestServer wires the full HTTP stack over sqlite and a temp dir
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := setupTestDB(t)

	notifier := &channelNotifier{sent: make(chan services.Notification, 64)}
	dispatcher := services.NewDispatcher(notifier, 1, 64)
	t.Cleanup(dispatcher.Close)

	cases := services.NewCaseService(database, services.NewLocalStorage(t.TempDir()), dispatcher)
	verification := services.NewVerificationService(services.NewMemoryCodeStore(services.VerificationCodeTTL), dispatcher)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	RegisterRoutes(e, New(cases, verification, database, services.MaxUploadSize), testJWTSecret)

	return &testServer{echo: e, notifier: notifier}
}

func tokenFor(t *testing.T, actor models.Actor) string {
	t.Helper()
	token, err := middleware.IssueActorToken(actor, []byte(testJWTSecret), time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request through the router. actor may be nil for anonymous calls.
func (s *testServer) do(t *testing.T, method, path string, actor *models.Actor, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if actor != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokenFor(t, *actor))
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path string, actor *models.Actor, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return s.do(t, method, path, actor, body, echo.MIMEApplicationJSON)
}

// nextNotification waits for the dispatcher to deliver
func (s *testServer) nextNotification(t *testing.T) services.Notification {
	t.Helper()
	select {
	case n := <-s.notifier.sent:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
		return services.Notification{}
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type caseEnvelope struct {
	Data             models.Case                 `json:"data"`
	Completeness     services.CompletenessReport `json:"completeness"`
	AvailableActions []services.Action           `json:"available_actions"`
}

func caseInput() services.CreateCaseInput {
	return services.CreateCaseInput{
		Applicant: services.ApplicantInput{
			FirstNames: "Ana María",
			LastNames:  "Quispe Huamán",
			NationalID: "45678912",
			Email:      "ana@example.com",
			Phone:      "987654321",
		},
		Project: services.ProjectInput{
			Name:      "Vivienda unifamiliar",
			Address:   "Jr. Lima 456",
			District:  "Cercado",
			WorkType:  models.WorkTypeNewConstruction,
			Ownership: models.OwnershipOwner,
			LandArea:  160,
			BuiltArea: 100,
			Levels:    2,
		},
	}
}

func (s *testServer) createCase(t *testing.T, actor models.Actor) models.Case {
	t.Helper()
	rec := s.doJSON(t, http.MethodPost, "/api/cases", &actor, caseInput())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env caseEnvelope
	decode(t, rec, &env)
	return env.Data
}

var pdfContent = append([]byte("%PDF-1.4\n"), make([]byte, 64)...)

// multipartBody builds a form with the given fields and files
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name+".pdf")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

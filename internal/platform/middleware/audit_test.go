package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clindx/clindx/internal/platform/identity"
)

// mockRecorder captures access entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AccessEntry
}

func (m *mockRecorder) RecordAccess(entry AccessEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRecorder) last(t *testing.T) AccessEntry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		t.Fatal("expected at least one access entry")
	}
	return m.entries[len(m.entries)-1]
}

func auditTestContext(method, target string, actor identity.Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	ctx := identity.WithActor(req.Context(), actor)
	rec := httptest.NewRecorder()
	c := e.NewContext(req.WithContext(ctx), rec)
	return c, rec
}

func TestAccessAudit_RecordsNoteRead(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	recorder := &mockRecorder{}

	c, _ := auditTestContext(http.MethodGet, "/api/v1/consult-notes/"+uuid.NewString(),
		identity.Actor{ID: "dr-mehta", Roles: []string{"physician"}})

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	mw := AccessAudit(logger, recorder)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := recorder.last(t)
	if entry.ActorID != "dr-mehta" {
		t.Errorf("expected actor dr-mehta, got %q", entry.ActorID)
	}
	if entry.Action != "read" {
		t.Errorf("expected action read, got %q", entry.Action)
	}
	if entry.Resource != "consult-notes" {
		t.Errorf("expected resource consult-notes, got %q", entry.Resource)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", entry.StatusCode)
	}
}

func TestAccessAudit_RecordsAlertAcknowledge(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	recorder := &mockRecorder{}

	c, _ := auditTestContext(http.MethodPost, "/api/v1/alerts/"+uuid.NewString()+"/acknowledge",
		identity.Actor{ID: "dr-rao", Roles: []string{"physician"}})

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	mw := AccessAudit(logger, recorder)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := recorder.last(t)
	if entry.Action != "create" {
		t.Errorf("expected action create for POST, got %q", entry.Action)
	}
	if entry.Resource != "alerts" {
		t.Errorf("expected resource alerts, got %q", entry.Resource)
	}
}

func TestAccessAudit_CapturesPatientIDFromQuery(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	recorder := &mockRecorder{}
	patientID := uuid.NewString()

	c, _ := auditTestContext(http.MethodGet, "/api/v1/alerts?patient_id="+patientID,
		identity.Actor{ID: "dr-mehta"})

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	mw := AccessAudit(logger, recorder)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := recorder.last(t)
	if entry.PatientID != patientID {
		t.Errorf("expected patient id %s, got %q", patientID, entry.PatientID)
	}
}

func TestAccessAudit_SkipsNonClinicalPaths(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	recorder := &mockRecorder{}

	c, _ := auditTestContext(http.MethodGet, "/health", identity.Actor{ID: "dr-mehta"})

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	mw := AccessAudit(logger, recorder)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.entries) != 0 {
		t.Errorf("expected no entries for /health, got %d", len(recorder.entries))
	}
}

func TestAccessAudit_PropagatesHandlerError(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	recorder := &mockRecorder{}

	c, _ := auditTestContext(http.MethodGet, "/api/v1/consult-notes/missing",
		identity.Actor{ID: "dr-mehta"})

	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	mw := AccessAudit(logger, recorder)
	err := mw(handler)(c)

	if err == nil {
		t.Fatal("expected error from handler")
	}
	// The access is still recorded even when the handler fails.
	entry := recorder.last(t)
	if entry.Resource != "consult-notes" {
		t.Errorf("expected resource consult-notes, got %q", entry.Resource)
	}
}

func TestAccessAudit_RecorderFunc(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	var captured AccessEntry
	recorder := AccessRecorderFunc(func(entry AccessEntry) error {
		captured = entry
		return nil
	})

	c, _ := auditTestContext(http.MethodDelete, "/api/v1/consult-notes/"+uuid.NewString(),
		identity.Actor{ID: "dr-mehta"})

	handler := func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}
	mw := AccessAudit(logger, recorder)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Action != "delete" {
		t.Errorf("expected action delete, got %q", captured.Action)
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{http.MethodGet, "read"},
		{http.MethodHead, "read"},
		{http.MethodPost, "create"},
		{http.MethodPut, "update"},
		{http.MethodPatch, "update"},
		{http.MethodDelete, "delete"},
		{"OPTIONS", "read"},
	}
	for _, tt := range tests {
		if got := httpMethodToAction(tt.method); got != tt.want {
			t.Errorf("httpMethodToAction(%s) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestExtractResource(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/consult-notes", "consult-notes"},
		{"/api/v1/consult-notes/123", "consult-notes"},
		{"/api/v1/alerts/123/audit", "alerts"},
		{"/api/v1/assist/evaluate", "assist"},
		{"/api/v1/", "unknown"},
	}
	for _, tt := range tests {
		if got := extractResource(tt.path); got != tt.want {
			t.Errorf("extractResource(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsUUIDLike(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{uuid.NewString(), true},
		{"not-a-uuid", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isUUIDLike(tt.input); got != tt.want {
			t.Errorf("isUUIDLike(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

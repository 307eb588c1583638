package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clindx/clindx/internal/engine/redflag"
	"github.com/clindx/clindx/internal/platform/identity"
)

func newHandlerFixture(t *testing.T) (*Handler, *Service, uuid.UUID) {
	t.Helper()
	svc := NewService(newMockRepo(), nil)
	records, err := svc.RegisterFired(context.Background(), uuid.New(), nil, "dr-mehta", []redflag.Alert{firedAlert()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewHandler(svc), svc, records[0].ID
}

func actorContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	ctx := identity.WithActor(req.Context(), identity.Actor{ID: "dr-mehta", Roles: []string{"physician"}})
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_Register(t *testing.T) {
	h, _, _ := newHandlerFixture(t)
	e := echo.New()

	body, _ := json.Marshal(RegisterRequest{
		PatientID: uuid.New(),
		Alerts:    []redflag.Alert{firedAlert()},
	})
	req := httptest.NewRequest(http.MethodPost, "/alerts", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := actorContext(e, req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_DisplayThenAcknowledge(t *testing.T) {
	h, _, id := newHandlerFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/alerts/"+id.String()+"/display", nil)
	rec := httptest.NewRecorder()
	c := actorContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	if err := h.Display(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/alerts/"+id.String()+"/acknowledge",
		strings.NewReader(`{"reason":"troponin ordered"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = actorContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	if err := h.Acknowledge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out AlertRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.State != redflag.StateAcknowledged {
		t.Errorf("expected acknowledged, got %q", out.State)
	}
}

func TestHandler_AcknowledgeBeforeDisplayConflicts(t *testing.T) {
	h, _, id := newHandlerFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/alerts/"+id.String()+"/acknowledge",
		strings.NewReader(`{"reason":"premature"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := actorContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Acknowledge(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_GetUnknownAlert(t *testing.T) {
	h, _, _ := newHandlerFixture(t)
	e := echo.New()

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/alerts/"+id.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

// brokenGetRepo simulates a database outage on reads.
type brokenGetRepo struct {
	*mockRepo
}

func (b *brokenGetRepo) GetByID(context.Context, uuid.UUID) (*AlertRecord, error) {
	return nil, errors.New("connection reset")
}

func TestHandler_GetRepoFailureIsNotNotFound(t *testing.T) {
	h := NewHandler(NewService(&brokenGetRepo{mockRepo: newMockRepo()}, nil))
	e := echo.New()

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/alerts/"+id.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a repository failure, got %v", err)
	}
}

func TestHandler_ListRequiresPatient(t *testing.T) {
	h, _, _ := newHandlerFixture(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.List(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

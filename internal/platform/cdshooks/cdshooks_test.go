package cdshooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() *Handler {
	h := NewHandler()
	h.RegisterService(Service{
		ID:          "consult-assist",
		Hook:        "patient-view",
		Description: "Differential and red-flag cards for the current note",
	}, func(ctx context.Context, req HookRequest) (*HookResponse, error) {
		return &HookResponse{Cards: []Card{{
			Summary:   "Possible acute coronary syndrome",
			Indicator: IndicatorCritical,
			Source:    Source{Label: "consult-assist"},
		}}}, nil
	})
	return h
}

func TestDiscovery(t *testing.T) {
	h := newTestHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cds-services", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Discovery(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string][]Service
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body["services"]) != 1 || body["services"][0].ID != "consult-assist" {
		t.Errorf("unexpected discovery payload: %+v", body)
	}
}

func invoke(t *testing.T, h *Handler, serviceID, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/cds-services/"+serviceID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(serviceID)
	return rec, h.Invoke(c)
}

func TestInvoke(t *testing.T) {
	h := newTestHandler()
	rec, err := invoke(t, h, "consult-assist",
		`{"hook":"patient-view","hookInstance":"abc-123","context":{"patientId":"p1"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp HookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Indicator != IndicatorCritical {
		t.Errorf("unexpected cards: %+v", resp.Cards)
	}
}

func TestInvoke_UnknownService(t *testing.T) {
	h := newTestHandler()
	_, err := invoke(t, h, "nope", `{"hook":"patient-view","hookInstance":"abc"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestInvoke_HookMismatch(t *testing.T) {
	h := newTestHandler()
	_, err := invoke(t, h, "consult-assist", `{"hook":"order-select","hookInstance":"abc"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestInvoke_MissingHookInstance(t *testing.T) {
	h := newTestHandler()
	_, err := invoke(t, h, "consult-assist", `{"hook":"patient-view"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestFeedback(t *testing.T) {
	h := newTestHandler()
	var gotOutcome string
	h.RegisterFeedbackHandler("consult-assist", func(ctx context.Context, serviceID string, fb FeedbackRequest) error {
		gotOutcome = fb.Outcome
		return nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/cds-services/consult-assist/feedback",
		strings.NewReader(`{"card":"c1","outcome":"accepted"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("consult-assist")

	if err := h.Feedback(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOutcome != "accepted" {
		t.Errorf("feedback handler not invoked, outcome %q", gotOutcome)
	}
}

func TestFeedback_NoHandlerIsNoOp(t *testing.T) {
	h := newTestHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/cds-services/consult-assist/feedback",
		strings.NewReader(`{"card":"c1","outcome":"overridden"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("consult-assist")

	if err := h.Feedback(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestInvoke_HandlerError(t *testing.T) {
	h := NewHandler()
	h.RegisterService(Service{ID: "failing", Hook: "patient-view", Description: "x"},
		func(ctx context.Context, req HookRequest) (*HookResponse, error) {
			return nil, fmt.Errorf("engine unavailable")
		})
	_, err := invoke(t, h, "failing", `{"hook":"patient-view","hookInstance":"abc"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

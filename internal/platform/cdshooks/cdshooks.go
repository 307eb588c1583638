// Package cdshooks exposes the assist engine to EHR front ends that speak
// the HL7 CDS Hooks 2.0 REST API: service discovery, hook invocation and
// card feedback. The package is transport only; turning an evaluation into
// cards is the registered handler's job.
package cdshooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Card indicator levels, least to most severe.
const (
	IndicatorInfo     = "info"
	IndicatorWarning  = "warning"
	IndicatorCritical = "critical"
)

// Service describes a single CDS service returned in discovery.
type Service struct {
	Hook              string            `json:"hook"`
	Title             string            `json:"title,omitempty"`
	Description       string            `json:"description"`
	ID                string            `json:"id"`
	Prefetch          map[string]string `json:"prefetch,omitempty"`
	UsageRequirements string            `json:"usageRequirements,omitempty"`
}

// HookRequest is the payload POSTed to invoke a hook.
type HookRequest struct {
	Hook         string                 `json:"hook"`
	HookInstance string                 `json:"hookInstance"`
	Context      map[string]interface{} `json:"context"`
	Prefetch     map[string]interface{} `json:"prefetch,omitempty"`
}

// Card is a single card in the hook response.
type Card struct {
	UUID              string       `json:"uuid,omitempty"`
	Summary           string       `json:"summary"`
	Detail            string       `json:"detail,omitempty"`
	Indicator         string       `json:"indicator"`
	Source            Source       `json:"source"`
	Suggestions       []Suggestion `json:"suggestions,omitempty"`
	Links             []Link       `json:"links,omitempty"`
	OverrideReasons   []Coding     `json:"overrideReasons,omitempty"`
	SelectionBehavior string       `json:"selectionBehavior,omitempty"`
}

// Source identifies the origin of a card.
type Source struct {
	Label string  `json:"label"`
	URL   string  `json:"url,omitempty"`
	Icon  string  `json:"icon,omitempty"`
	Topic *Coding `json:"topic,omitempty"`
}

// Suggestion is a suggested action within a card.
type Suggestion struct {
	Label         string   `json:"label"`
	UUID          string   `json:"uuid,omitempty"`
	IsRecommended bool     `json:"isRecommended,omitempty"`
	Actions       []Action `json:"actions,omitempty"`
}

// Action is an individual action within a suggestion.
type Action struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Resource    interface{} `json:"resource,omitempty"`
}

// Link is an external link within a card.
type Link struct {
	Label      string `json:"label"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	AppContext string `json:"appContext,omitempty"`
}

// Coding is a code/system/display triple used in CDS Hooks.
type Coding struct {
	Code    string `json:"code"`
	System  string `json:"system,omitempty"`
	Display string `json:"display,omitempty"`
}

// HookResponse is returned from hook invocation.
type HookResponse struct {
	Cards         []Card   `json:"cards"`
	SystemActions []Action `json:"systemActions,omitempty"`
}

// FeedbackRequest records what the user did with a card.
type FeedbackRequest struct {
	Card             string   `json:"card"`
	Outcome          string   `json:"outcome"`
	OverrideReasons  []Coding `json:"overrideReasons,omitempty"`
	OutcomeTimestamp string   `json:"outcomeTimestamp,omitempty"`
}

// ServiceHandler processes a CDS hook request and returns cards.
type ServiceHandler func(ctx context.Context, req HookRequest) (*HookResponse, error)

// FeedbackHandler processes feedback for a service.
type FeedbackHandler func(ctx context.Context, serviceID string, fb FeedbackRequest) error

// Handler implements the CDS Hooks 2.0 REST surface over registered
// services.
type Handler struct {
	services         map[string]Service
	handlers         map[string]ServiceHandler
	feedbackHandlers map[string]FeedbackHandler
	order            []string
}

// NewHandler creates an empty Handler.
func NewHandler() *Handler {
	return &Handler{
		services:         make(map[string]Service),
		handlers:         make(map[string]ServiceHandler),
		feedbackHandlers: make(map[string]FeedbackHandler),
	}
}

// RegisterService registers a CDS service and its handler. Re-registering an
// ID replaces the service while keeping its discovery position.
func (h *Handler) RegisterService(svc Service, handler ServiceHandler) {
	if _, exists := h.services[svc.ID]; !exists {
		h.order = append(h.order, svc.ID)
	}
	h.services[svc.ID] = svc
	h.handlers[svc.ID] = handler
}

// RegisterFeedbackHandler registers an optional feedback handler for a
// service.
func (h *Handler) RegisterFeedbackHandler(serviceID string, handler FeedbackHandler) {
	h.feedbackHandlers[serviceID] = handler
}

// RegisterRoutes registers the CDS Hooks routes on the root echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/cds-services", h.Discovery)
	e.POST("/cds-services/:id", h.Invoke)
	e.POST("/cds-services/:id/feedback", h.Feedback)
}

// Discovery handles GET /cds-services.
func (h *Handler) Discovery(c echo.Context) error {
	services := make([]Service, 0, len(h.order))
	for _, id := range h.order {
		if svc, ok := h.services[id]; ok {
			services = append(services, svc)
		}
	}
	return c.JSON(http.StatusOK, map[string][]Service{"services": services})
}

// Invoke handles POST /cds-services/:id.
func (h *Handler) Invoke(c echo.Context) error {
	serviceID := c.Param("id")

	svc, ok := h.services[serviceID]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown CDS service %q", serviceID))
	}

	var req HookRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	if req.Hook != svc.Hook {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("hook mismatch: request hook %q does not match service hook %q", req.Hook, svc.Hook))
	}
	if req.HookInstance == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hookInstance is required")
	}

	handler, ok := h.handlers[serviceID]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "no handler registered for service")
	}

	resp, err := handler(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

// Feedback handles POST /cds-services/:id/feedback. A service without a
// feedback handler accepts and drops the feedback.
func (h *Handler) Feedback(c echo.Context) error {
	serviceID := c.Param("id")

	if _, ok := h.services[serviceID]; !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown CDS service %q", serviceID))
	}

	var fb FeedbackRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&fb); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid feedback body: %v", err))
	}

	handler, ok := h.feedbackHandlers[serviceID]
	if !ok {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	if err := handler(c.Request().Context(), serviceID, fb); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package alerts

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clindx/clindx/internal/engine/redflag"
	"github.com/clindx/clindx/internal/platform/identity"
	"github.com/clindx/clindx/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/alerts", h.Register)
	api.GET("/alerts", h.List)
	api.GET("/alerts/:id", h.Get)
	api.GET("/alerts/:id/audit", h.GetAudit)
	api.POST("/alerts/:id/display", h.Display)
	api.POST("/alerts/:id/acknowledge", h.Acknowledge)
}

// RegisterRequest carries detected alerts the caller wants tracked.
type RegisterRequest struct {
	PatientID uuid.UUID       `json:"patient_id"`
	NoteID    *uuid.UUID      `json:"note_id,omitempty"`
	Alerts    []redflag.Alert `json:"alerts"`
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := identity.FromContext(c.Request().Context())
	records, err := h.svc.RegisterFired(c.Request().Context(), req.PatientID, req.NoteID, actor.ID, req.Alerts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, records)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "alert not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id query parameter is required")
	}
	state := c.QueryParam("state")
	switch state {
	case "", redflag.StateCreated, redflag.StateDisplayed, redflag.StateAcknowledged:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid state filter")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, state, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAudit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entries, err := h.svc.Audit(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "alert not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) Display(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := identity.FromContext(c.Request().Context())
	rec, err := h.svc.MarkDisplayed(c.Request().Context(), id, actor.ID)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// AcknowledgeRequest carries the clinician's dismissal reason.
type AcknowledgeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Acknowledge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AcknowledgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := identity.FromContext(c.Request().Context())
	rec, err := h.svc.Acknowledge(c.Request().Context(), id, actor.ID, req.Reason)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// transitionError maps lifecycle failures onto HTTP statuses: a rejected
// transition is a conflict with the alert's current state, not a bad
// request.
func transitionError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	case errors.Is(err, redflag.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

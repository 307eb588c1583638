package assist

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clindx/clindx/internal/platform/identity"
	"github.com/clindx/clindx/internal/platform/middleware"
)

type Handler struct {
	svc        *Service
	lexiconDir string
}

// NewHandler creates the assist HTTP surface. lexiconDir is where reload
// reads updated rule files from; empty means reload is unavailable (the
// compiled-in ruleset is active).
func NewHandler(svc *Service, lexiconDir string) *Handler {
	return &Handler{svc: svc, lexiconDir: lexiconDir}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/assist/evaluate", h.Evaluate)

	// The active ruleset is an immutable snapshot; serve it with an ETag so
	// clients can revalidate cheaply between reloads.
	api.GET("/assist/lexicon", h.Lexicon, middleware.ETagMiddleware(middleware.DefaultCacheConfig()))

	adminGroup := api.Group("", identity.RequireRole("admin"))
	adminGroup.POST("/assist/lexicon/reload", h.ReloadLexicon)
}

// Evaluate handles POST /assist/evaluate: free text plus patient context in,
// findings, ranked candidates and alerts out.
func (h *Handler) Evaluate(c echo.Context) error {
	var req EvaluationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eval, err := h.svc.Evaluate(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, eval)
}

// Lexicon handles GET /assist/lexicon.
func (h *Handler) Lexicon(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Lexicon())
}

// ReloadLexicon handles POST /assist/lexicon/reload. The swap is atomic:
// in-flight evaluations finish on the snapshot they started with.
func (h *Handler) ReloadLexicon(c echo.Context) error {
	info, err := h.svc.ReloadLexicon(h.lexiconDir)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, info)
}

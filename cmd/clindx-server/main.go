package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clindx/clindx/internal/config"
	"github.com/clindx/clindx/internal/domain/alerts"
	"github.com/clindx/clindx/internal/domain/assist"
	"github.com/clindx/clindx/internal/domain/consult"
	"github.com/clindx/clindx/internal/engine/extract"
	"github.com/clindx/clindx/internal/engine/lexicon"
	"github.com/clindx/clindx/internal/platform/cdshooks"
	"github.com/clindx/clindx/internal/platform/db"
	"github.com/clindx/clindx/internal/platform/identity"
	"github.com/clindx/clindx/internal/platform/middleware"
	"github.com/clindx/clindx/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clindx-server",
		Short: "Clinical decision support API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(lexiconCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func lexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Inspect and validate rule files",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a rule directory and report errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				return fmt.Errorf("--dir is required")
			}
			lex, err := lexicon.Load(dir)
			if err != nil {
				return err
			}
			fmt.Printf("OK: version %s, %d diseases, %d red-flag rules, %d expansions\n",
				lex.Version, len(lex.Diseases), len(lex.RedFlags), len(lex.Expansions))
			return nil
		},
	}
	validateCmd.Flags().String("dir", "", "Path to rule file directory")
	cmd.AddCommand(validateCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active ruleset summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			var (
				lex *lexicon.Lexicon
				err error
			)
			if dir == "" {
				lex = lexicon.Builtin()
			} else if lex, err = lexicon.Load(dir); err != nil {
				return err
			}
			fmt.Printf("version:       %s\n", lex.Version)
			fmt.Printf("expansions:    %d\n", len(lex.Expansions))
			fmt.Printf("symptoms:      %d\n", len(lex.Symptoms))
			fmt.Printf("composites:    %d\n", len(lex.Composites))
			fmt.Printf("diseases:      %d\n", len(lex.Diseases))
			fmt.Printf("red flags:     %d\n", len(lex.RedFlags))
			return nil
		},
	}
	showCmd.Flags().String("dir", "", "Path to rule file directory (empty for compiled-in ruleset)")
	cmd.AddCommand(showCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Lexicon snapshot: compiled-in ruleset unless a directory is configured.
	lex := lexicon.Builtin()
	if cfg.LexiconDir != "" {
		lex, err = lexicon.Load(cfg.LexiconDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.LexiconDir).Msg("failed to load lexicon")
		}
	}
	store, err := lexicon.NewStore(lex)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize lexicon store")
	}
	logger.Info().Str("version", lex.Version).Int("diseases", len(lex.Diseases)).
		Int("red_flags", len(lex.RedFlags)).Msg("lexicon loaded")

	// Metrics
	metrics := telemetry.NewProvider()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Identity middleware
	e.Use(identity.Middleware(identity.Config{
		Mode:   cfg.ResolvedAuthMode(),
		Secret: []byte(cfg.JWTSecret),
	}))

	e.Use(metrics.Middleware())

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.BodyLimit(strconv.Itoa(cfg.MaxNoteChars*4) + "B"))
	apiV1.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeout) * time.Second))
	apiV1.Use(middleware.AccessAudit(logger))

	// -- Services and handlers --

	assistSvc, err := assist.NewService(store, cfg.EvalCacheSize, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create assist service")
	}
	assistHandler := assist.NewHandler(assistSvc, cfg.LexiconDir)
	assistHandler.RegisterRoutes(apiV1)

	noteRepo := consult.NewRepoPG(pool)
	consultSvc := consult.NewService(noteRepo, assistSvc)
	consultHandler := consult.NewHandler(consultSvc)
	consultHandler.RegisterRoutes(apiV1)

	alertRepo := alerts.NewRepoPG(pool)
	alertSvc := alerts.NewService(alertRepo, metrics)
	alertHandler := alerts.NewHandler(alertSvc)
	alertHandler.RegisterRoutes(apiV1)

	// CDS Hooks surface for EHR front ends.
	hooks := cdshooks.NewHandler()
	hooks.RegisterService(cdshooks.Service{
		ID:          "consult-assist",
		Hook:        "patient-view",
		Title:       "Consultation assistant",
		Description: "Differential diagnosis and red-flag cards for the current note",
	}, consultAssistHook(assistSvc))
	hooks.RegisterFeedbackHandler("consult-assist",
		func(ctx context.Context, serviceID string, fb cdshooks.FeedbackRequest) error {
			logger.Info().Str("service", serviceID).Str("card", fb.Card).
				Str("outcome", fb.Outcome).Msg("cds hooks feedback")
			return nil
		})
	hooks.RegisterRoutes(e)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// consultAssistHook adapts the evaluation pipeline to CDS Hooks: the hook
// context carries the note text and patient demographics, the response is
// one card per fired alert plus a summary card for the differential.
func consultAssistHook(svc *assist.Service) cdshooks.ServiceHandler {
	return func(ctx context.Context, req cdshooks.HookRequest) (*cdshooks.HookResponse, error) {
		eval, err := svc.Evaluate(ctx, evaluationRequestFromHook(req))
		if err != nil {
			return nil, err
		}

		cards := make([]cdshooks.Card, 0, len(eval.Alerts)+1)
		for _, a := range eval.Alerts {
			card := cdshooks.Card{
				UUID:      a.ID.String(),
				Summary:   "Red flag: " + strings.ReplaceAll(a.RuleID, "_", " "),
				Detail:    a.RecommendedAction,
				Indicator: indicatorForUrgency(a.Urgency),
				Source:    cdshooks.Source{Label: "consult-assist"},
			}
			if a.TimeCriticalNote != "" {
				card.Detail += "\n\n" + a.TimeCriticalNote
			}
			cards = append(cards, card)
		}

		if len(eval.Candidates) > 0 {
			var b strings.Builder
			for i, cand := range eval.Candidates {
				if i >= 5 {
					break
				}
				fmt.Fprintf(&b, "%d. %s (%.0f%%)\n", i+1, cand.Name, cand.Posterior*100)
			}
			cards = append(cards, cdshooks.Card{
				Summary:   "Differential diagnosis",
				Detail:    b.String(),
				Indicator: cdshooks.IndicatorInfo,
				Source:    cdshooks.Source{Label: "consult-assist"},
			})
		}

		return &cdshooks.HookResponse{Cards: cards}, nil
	}
}

// evaluationRequestFromHook pulls note text, vitals and demographics out of
// the loosely typed hook context.
func evaluationRequestFromHook(req cdshooks.HookRequest) assist.EvaluationRequest {
	out := assist.EvaluationRequest{}
	if s, ok := req.Context["note"].(string); ok {
		out.Text = s
	}
	if v, ok := req.Context["age"].(float64); ok {
		out.Patient.Age = int(v)
	}
	if s, ok := req.Context["sex"].(string); ok {
		out.Patient.Sex = s
	}
	if b, ok := req.Context["pregnant"].(bool); ok {
		out.Patient.Pregnant = b
	}
	if s, ok := req.Context["season"].(string); ok {
		out.Patient.Season = s
	}
	if raw, ok := req.Context["vitals"].(map[string]interface{}); ok {
		out.Vitals = vitalsFromMap(raw)
	}
	return out
}

func vitalsFromMap(raw map[string]interface{}) *extract.Vitals {
	v := &extract.Vitals{}
	set := false
	intField := func(key string, dst **int) {
		if f, ok := raw[key].(float64); ok {
			n := int(f)
			*dst = &n
			set = true
		}
	}
	intField("bp_systolic", &v.BPSystolic)
	intField("bp_diastolic", &v.BPDiastolic)
	intField("pulse_rate", &v.PulseRate)
	intField("spo2", &v.SpO2)
	intField("respiratory_rate", &v.RespiratoryRate)
	if f, ok := raw["temperature_c"].(float64); ok {
		v.TemperatureC = &f
		set = true
	}
	if !set {
		return nil
	}
	return v
}

func indicatorForUrgency(urgency string) string {
	switch urgency {
	case lexicon.UrgencyEmergency:
		return cdshooks.IndicatorCritical
	case lexicon.UrgencyUrgent:
		return cdshooks.IndicatorWarning
	default:
		return cdshooks.IndicatorInfo
	}
}

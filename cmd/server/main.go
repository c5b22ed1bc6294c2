// @title           Judiciary Information System API
// @version         1.0
// @description     Court case management: registrars register cases and schedule hearings with judge/lawyer conflict checks, lawyers pay once per case to browse records, and every change lands in an audit trail.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/aldoetobex/jis-backend/docs"
	"github.com/aldoetobex/jis-backend/internal/access"
	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/internal/auth"
	"github.com/aldoetobex/jis-backend/internal/cases"
	"github.com/aldoetobex/jis-backend/internal/config"
	"github.com/aldoetobex/jis-backend/internal/directory"
	"github.com/aldoetobex/jis-backend/internal/hearings"
	"github.com/aldoetobex/jis-backend/internal/logger"
	"github.com/aldoetobex/jis-backend/internal/metrics"
	"github.com/aldoetobex/jis-backend/internal/storage"
	"github.com/aldoetobex/jis-backend/pkg/database"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.Get()

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	db, err := database.Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatalw("Failed to initialize database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalw("Failed to run migrations", "error", err)
	}

	loc, err := cfg.CourtLocation()
	if err != nil {
		log.Fatalw("Invalid court timezone", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		log.Fatalw("Failed to register metrics", "error", err)
	}

	// Services
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	rec := audit.NewRecorder(db, m)
	dir := directory.New(db, cfg.DirectoryCacheTTL)
	gate := access.NewGate(db, rec, m, cfg.BrowsingFeeCents)
	scheduler := hearings.NewScheduler(db, rec, hearings.Options{
		Hours: hearings.CourtHours{
			Location: loc,
			Opens:    cfg.CourtOpensHour,
			Closes:   cfg.CourtClosesHour,
			Enforce:  cfg.EnforceCourtHours,
		},
		Metrics: m,
	})

	var store cases.ObjectStore
	if sb := storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket); sb.Configured() {
		store = sb
	} else {
		log.Warnw("Evidence storage is not configured; uploads are disabled")
	}
	reg := cases.NewRegistry(db, rec, gate, store)

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    cases.MaxEvidenceFiles*cases.MaxEvidenceBytes + 1024*1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", m.Handler())
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	api := app.Group("/api")
	requireAuth := issuer.RequireAuth()
	registrar := auth.RequireRole(models.RoleRegistrar)
	lawyer := auth.RequireRole(models.RoleLawyer)

	// Auth
	authH := auth.NewHandler(db, issuer, rec.UserCreated, dir.UserCreated)
	throttle := limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many attempts, try again later")
		},
	})
	api.Post("/signup", throttle, authH.Signup)
	api.Post("/login", throttle, authH.Login)
	api.Get("/me", requireAuth, authH.Me)

	// Directory
	api.Get("/directory/:role", requireAuth, registrar, dir.List)

	// Cases
	caseH := cases.NewHandler(reg)
	api.Get("/cases/search", requireAuth, caseH.Search)
	api.Get("/cases/record/:cin", requireAuth, caseH.Record)
	api.Post("/cases", requireAuth, registrar, caseH.Create)
	api.Get("/cases", requireAuth, caseH.List)
	api.Patch("/cases/:id/status", requireAuth, registrar, caseH.UpdateStatus)
	api.Post("/cases/:id/assignments", requireAuth, registrar, caseH.AssignLawyer)
	api.Post("/cases/:id/judgments", requireAuth, auth.RequireRole(models.RoleJudge), caseH.AddJudgment)
	api.Post("/cases/:id/evidence", requireAuth, caseH.UploadEvidence)
	api.Get("/evidence/:id/signed-url", requireAuth, caseH.EvidenceURL)

	// Hearings
	hearingH := hearings.NewHandler(scheduler)
	api.Post("/hearings/check-conflict", requireAuth, registrar, hearingH.CheckConflict)
	api.Post("/hearings", requireAuth, registrar, hearingH.Schedule)
	api.Get("/hearings", requireAuth, auth.RequireRole(models.RoleRegistrar, models.RoleJudge), hearingH.List)
	api.Patch("/hearings/:id/reschedule", requireAuth, registrar, hearingH.Reschedule)
	api.Patch("/hearings/:id/proceedings", requireAuth, registrar, hearingH.RecordProceedings)

	// Access gate
	accessH := access.NewHandler(gate)
	api.Post("/access/pay", requireAuth, lawyer, accessH.Pay)
	api.Get("/access/history", requireAuth, lawyer, accessH.History)

	// Audit trail
	auditH := audit.NewHandler(audit.NewReader(db))
	api.Get("/audit-logs", requireAuth, registrar, auditH.List)
	api.Get("/audit-logs/export", requireAuth, registrar, auditH.Export)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()
	log.Infow("Server started", "port", cfg.Port, "env", cfg.Env, "db", cfg.DBDriver, "court_tz", loc.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server exited gracefully")
}

// requestLogger logs one line per request and tags it with a request id.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)

		err := c.Next()
		if err != nil {
			// Let the error handler write the response so the status is final.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Get().Infow("HTTP Request",
			"request_id", id,
			"client_ip", c.IP(),
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start).String(),
		)
		return nil
	}
}

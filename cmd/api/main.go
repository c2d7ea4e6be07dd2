package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smktahasus/psb_api/internal/cache"
	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/database"
	"github.com/smktahasus/psb_api/internal/draft"
	"github.com/smktahasus/psb_api/internal/form"
	"github.com/smktahasus/psb_api/internal/handler"
	"github.com/smktahasus/psb_api/internal/middleware"
	"github.com/smktahasus/psb_api/internal/repository"
	"github.com/smktahasus/psb_api/internal/security"
	"github.com/smktahasus/psb_api/internal/service"
	"github.com/smktahasus/psb_api/internal/sse"
	"github.com/smktahasus/psb_api/internal/submit"
	"github.com/smktahasus/psb_api/internal/validation"
	"github.com/smktahasus/psb_api/internal/worker"
	"github.com/smktahasus/psb_api/pkg/supabase"
)

// main is the application entrypoint for the PSB registration API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting psb api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize Supabase client when configured
	var supaClient *supabase.Client
	if cfg.SupabaseEnabled() {
		supaClient = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
		log.Info().Str("table", cfg.Supabase.Table).Msg("Supabase client initialized")
	} else {
		log.Warn().Msg("Supabase not configured, registrations settle in the local store only")
	}

	// 5. Initialize repositories
	regRepo := repository.NewRegistrationRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 6. Initialize core components
	validator := validation.New(cfg.Validation)
	drafts := draft.NewStore(redisClient, cfg.Draft)
	sessions := form.NewManager(form.DefaultSteps(), validator, drafts)
	limiter := security.NewRateLimiter(cfg.RateLimit)

	var table submit.TableClient
	if supaClient != nil {
		table = submit.NewSupabaseTable(supaClient, cfg.Supabase.Table)
	} else {
		table = submit.NewLocalTable(regRepo)
	}
	submitter := submit.NewSubmitter(table, cfg.Submit)

	// 6a. SSE hub for dashboard updates
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	// 7. Initialize services
	regSvc := service.NewRegistrationService(submitter, regRepo, notifier, supaClient != nil)
	dashSvc := service.NewDashboardService(regRepo)

	var remoteAuth service.AuthClient
	var remoteVerifier middleware.UserVerifier
	if supaClient != nil {
		remoteAuth = supaClient
		remoteVerifier = supaClient
	}
	authSvc := service.NewAuthService(remoteAuth, adminRepo, limiter, cfg.JWTSecret)
	if err := authSvc.EnsureBootstrapAdmin(cfg.Admin); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(cfg.JWTSecret, remoteVerifier)
	envMw := middleware.NewEnvInjectMiddleware(map[string]string{
		"SUPABASE_URL":      cfg.Supabase.URL,
		"SUPABASE_ANON_KEY": cfg.Supabase.AnonKey,
		"APP_NAME":          cfg.AppName,
		"APP_ENV":           cfg.Env,
	})

	// 9. Initialize handlers
	handlers := &Handlers{
		Health:    handler.NewHealthHandler(db, drafts, supaClient, cfg.Supabase.Table, cfg.AppName),
		Form:      handler.NewFormHandler(sessions, drafts, regSvc),
		Dashboard: handler.NewDashboardHandler(dashSvc, regSvc),
		Auth:      handler.NewAuthHandler(authSvc),
		SSE:       handler.NewSSEHandler(hub, jwtMw),
	}

	// 10. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, envMw)

	// 11. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 12. Start the sync worker when a remote table exists to push to
	if supaClient != nil {
		go worker.NewSyncWorker(regRepo, table, notifier, cfg.Worker.SyncInterval).Start(ctx)
	}

	// 13. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	Form      *handler.FormHandler
	Dashboard *handler.DashboardHandler
	Auth      *handler.AuthHandler
	SSE       *handler.SSEHandler
}

func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMw *middleware.JWTMiddleware, envMw *middleware.EnvInjectMiddleware) {
	router.GET("/health", handlers.Health.Health)

	// Auth
	auth := router.Group("/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/session", jwtMw.Handle(), handlers.Auth.Session)
	}

	// Public form API
	formGroup := router.Group("/v1/form")
	{
		formGroup.POST("/sessions", handlers.Form.CreateSession)
		formGroup.GET("/sessions/:id", handlers.Form.GetSession)
		formGroup.POST("/sessions/:id/fields", handlers.Form.UpdateFields)
		formGroup.POST("/sessions/:id/next", handlers.Form.Next)
		formGroup.POST("/sessions/:id/previous", handlers.Form.Previous)
		formGroup.POST("/sessions/:id/show", handlers.Form.Show)
		formGroup.POST("/sessions/:id/submit", handlers.Form.Submit)
		formGroup.POST("/sessions/:id/draft", handlers.Form.SaveDraft)
		formGroup.GET("/sessions/:id/draft", handlers.Form.DraftInfo)
		formGroup.DELETE("/sessions/:id/draft", handlers.Form.ClearDraft)
		formGroup.POST("/sessions/:id/draft/restore", handlers.Form.RestoreDraft)
		formGroup.GET("/sessions/:id/draft/export", handlers.Form.ExportDraft)
		formGroup.POST("/sessions/:id/draft/import", handlers.Form.ImportDraft)
	}

	// Admin dashboard (JWT protected)
	admin := router.Group("/v1/admin")
	admin.Use(jwtMw.Handle())
	{
		admin.GET("/registrations", handlers.Dashboard.List)
		admin.GET("/registrations/export", handlers.Dashboard.Export)
		admin.GET("/registrations/:id", handlers.Dashboard.Detail)
		admin.PATCH("/registrations/:id/status", handlers.Dashboard.UpdateStatus)
		admin.DELETE("/registrations/:id", handlers.Dashboard.Delete)
		admin.GET("/stats", handlers.Dashboard.Stats)
	}
	router.GET("/v1/admin/sse", handlers.SSE.Stream)

	// Static pages carry the public runtime config via injection.
	pages := router.Group("/")
	pages.Use(envMw.Handle())
	pages.Static("/public", "./web")
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

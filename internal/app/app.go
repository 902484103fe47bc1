package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"kuberdash/internal/charts"
	"kuberdash/internal/config"
	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/infrastructure"
	customMiddleware "kuberdash/internal/middleware"
	"kuberdash/internal/security"
	"kuberdash/internal/services"
	"kuberdash/internal/session"
	handlers "kuberdash/internal/transport/http"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

var (
	// BuildTime is set at compile time
	BuildTime = ""
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Sessions      *session.Manager
	Users         *security.UserStore
	ErrorHandler  *apierrors.ErrorHandler
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dashboard *services.DashboardService
	Auth      *services.AuthService
	Health    *services.HealthService
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	secret, err := a.sessionSecret()
	if err != nil {
		return err
	}

	mgr, err := session.NewManager(session.Config{
		Secret:      secret,
		CookieName:  a.Config.Security.CookieName,
		Secure:      a.Config.Security.CookieSecure,
		Timeout:     a.Config.Session.Timeout,
		MaxSessions: a.Config.Session.MaxSessions,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	a.Sessions = mgr

	if err := infrastructure.RegisterSessionGauge(a.OTelProviders.Meter, mgr.Count); err != nil {
		return fmt.Errorf("failed to register session gauge: %w", err)
	}

	a.Users = security.NewUserStore(a.Paths.UsersFile, security.WithLogger(a.Logger))

	files := validation.NewFileValidator(a.Logger, a.Config.Upload.MaxFileSize, a.Config.Upload.AllowedExtensions)
	factory := charts.NewFactory(domain.ChartLayout{
		Template:  a.Config.Visualization.Template,
		HoverMode: a.Config.Visualization.HoverMode,
		Width:     a.Config.Visualization.ChartWidth,
		Height:    a.Config.Visualization.ChartHeight,
	}, a.Logger)

	dashboard := services.NewDashboardService(mgr, files, factory, a.Metrics, services.DashboardConfig{
		MaxDatasetRows: a.Config.Session.MaxDatasetRows,
		RowLimit:       a.Config.Visualization.RowLimit,
		TopNMax:        a.Config.Visualization.TopNMax,
	}, a.Logger)

	if a.Paths.DefaultDataset != "" {
		if err := dashboard.LoadDefaultDataset(a.Paths.DefaultDataset); err != nil {
			// the dashboard still works from uploads alone
			a.Logger.Warn("Default dataset not loaded",
				slog.String("path", a.Paths.DefaultDataset),
				slog.String("error", err.Error()))
		}
	}

	auth := services.NewAuthService(a.Users, mgr, a.Metrics, a.Logger)

	health := services.NewHealthService(services.BuildInfo{
		Version:   config.AppVersion,
		BuildTime: BuildTime,
		BuildID:   BuildID,
	}, a.Paths, a.Users, mgr, dashboard, a.Logger)

	a.Services = &ServiceContainer{
		Dashboard: dashboard,
		Auth:      auth,
		Health:    health,
	}
	return nil
}

// sessionSecret returns the configured cookie signing key or a random one.
// A random key invalidates every session cookie on restart.
func (a *Application) sessionSecret() ([]byte, error) {
	if s := a.Config.Security.SessionSecret; s != "" {
		return []byte(s), nil
	}

	s, err := gonanoid.New(48)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	a.Logger.Warn("No session secret configured, generated an ephemeral one",
		slog.String("env", config.EnvPrefix+"_SECURITY_SESSION_SECRET"))
	return []byte(s), nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Recoverer → headers → CORS → rate limit
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))

		r.Mount(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).Routes())

		a.setupHTMLRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := validation.New()

	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	authHandler := handlers.NewAuthHandler(a.Services.Auth, validator, a.Logger, a.ErrorHandler)
	sessionHandler := handlers.NewSessionHandler(a.Services.Dashboard, validator, a.Logger, a.ErrorHandler)
	datasetHandler := handlers.NewDatasetHandler(a.Services.Dashboard, validator, a.Config.Upload.MaxFileSize, a.Logger, a.ErrorHandler)
	validationMiddleware := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler, 0)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Mount(config.HealthEndpoint, healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.With(validationMiddleware.ValidateJSON).Post("/log/client", handlers.NewClientLogHandler(a.Logger).Handle)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "application/json", "multipart/form-data"))
			r.Use(validationMiddleware.ValidateJSON)
			r.Use(customMiddleware.Session(a.Sessions, a.ErrorHandler, a.Logger))

			r.Mount("/auth", authHandler.Routes())
			r.Mount("/users", authHandler.UserRoutes())
			r.Mount("/session", sessionHandler.Routes())
			r.Mount("/datasets", datasetHandler.Routes())
			r.Mount("/compare", datasetHandler.CompareRoutes())
		})
	})
}

// setupHTMLRoutes serves the dashboard page and its assets from the web
// directory
func (a *Application) setupHTMLRoutes(r chi.Router) {
	if !config.FileExists(a.Paths.WebDir) {
		a.Logger.Warn("Web directory not found, serving the API only",
			slog.String("path", a.Paths.WebDir))
		return
	}

	r.With(customMiddleware.Compress(5)).Handle("/static/*", handlers.ServeStatic(a.Paths.StaticDir))
	r.Get("/", handlers.ServeMainApp(a.Paths.WebDir))
}

// getCORSConfig returns the CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		ExposedHeaders:   []string{customMiddleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Sessions.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started successfully",
			slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Stop shuts the server down and releases background resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.Sessions != nil {
		a.Sessions.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// performStartupHealthCheck verifies the writable directories and reports
// missing optional files
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Exports": a.Paths.ExportsDir,
		"Logs":    a.Paths.LogsDir,
		"Users":   filepath.Dir(a.Paths.UsersFile),
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if !config.FileExists(a.Paths.UsersFile) {
		a.Logger.InfoContext(ctx, "Credential store not found, it will be created on first sign-up",
			slog.String("path", a.Paths.UsersFile))
	}

	if a.Paths.DefaultDataset != "" && !a.Paths.HasDefaultDataset() {
		warnings = append(warnings, fmt.Sprintf("Default dataset not found: %s", a.Paths.DefaultDataset))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

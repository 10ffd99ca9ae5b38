package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/hivekeeper/core/internal/adapters/http"
	"github.com/hivekeeper/core/internal/adapters/repository"
	"github.com/hivekeeper/core/internal/application/services"
	"github.com/hivekeeper/core/internal/infrastructure/config"
	"github.com/hivekeeper/core/internal/infrastructure/database"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	db     *database.DB
	store  *services.StoreService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repositories
	kvRepo, err := repository.NewKVRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key-value storage: %w", err)
	}
	stateRepo := repository.NewStateRepository(kvRepo, cfg.Storage.StateKey)
	sessionRepo := repository.NewSessionRepository(kvRepo, cfg.Storage.SessionKey)

	// Initialize services
	storeService := services.NewStoreService(stateRepo, cfg.Trial, appLogger)
	statsService := services.NewStatsService(storeService, appLogger)
	authService := services.NewAuthService(sessionRepo, cfg.JWT, appLogger)

	// Initialize handlers
	authHandler := httpHandlers.NewAuthHandler(authService, appLogger)
	apiaryHandler := httpHandlers.NewApiaryHandler(storeService, appLogger)
	hiveHandler := httpHandlers.NewHiveHandler(storeService, appLogger)
	inspectionHandler := httpHandlers.NewInspectionHandler(storeService, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(storeService, appLogger)
	yieldHandler := httpHandlers.NewYieldHandler(storeService, appLogger)
	statsHandler := httpHandlers.NewStatsHandler(statsService, appLogger)
	dashboardHandler := httpHandlers.NewDashboardHandler(storeService, appLogger)
	registrationHandler := httpHandlers.NewRegistrationHandler(storeService, appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		db:     db,
		store:  storeService,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(routeHandlers{
		auth:         authHandler,
		apiaries:     apiaryHandler,
		hives:        hiveHandler,
		inspections:  inspectionHandler,
		tasks:        taskHandler,
		yields:       yieldHandler,
		stats:        statsHandler,
		dashboard:    dashboardHandler,
		registration: registrationHandler,
	})

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// routeHandlers bundles the handlers the route table needs
type routeHandlers struct {
	auth         *httpHandlers.AuthHandler
	apiaries     *httpHandlers.ApiaryHandler
	hives        *httpHandlers.HiveHandler
	inspections  *httpHandlers.InspectionHandler
	tasks        *httpHandlers.TaskHandler
	yields       *httpHandlers.YieldHandler
	stats        *httpHandlers.StatsHandler
	dashboard    *httpHandlers.DashboardHandler
	registration *httpHandlers.RegistrationHandler
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h routeHandlers) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Auth routes. These only touch the session key, not the journal state,
	// so they do not wait for the store.
	authGroup := v1.Group("/auth")
	authGroup.POST("/signin", h.auth.SignIn)
	authGroup.POST("/signout", h.auth.SignOut)
	authGroup.GET("/session", h.auth.CurrentSession)
	authGroup.POST("/verify-passcode", h.auth.VerifyPasscode)

	// Everything below reads or mutates the journal state and returns 503
	// until the store has loaded.
	journal := v1.Group("", s.requireReady())

	// Registration routes
	journal.GET("/registration", h.registration.GetTrialStatus)
	journal.POST("/registration", h.registration.Register)

	// Dashboard route
	journal.GET("/dashboard", h.dashboard.GetDashboard)

	// Apiary routes
	apiaryGroup := journal.Group("/apiaries")
	apiaryGroup.GET("", h.apiaries.ListApiaries)
	apiaryGroup.POST("", h.apiaries.CreateApiary)
	apiaryGroup.GET("/current", h.apiaries.GetCurrentApiary)
	apiaryGroup.PUT("/:id", h.apiaries.UpdateApiary)
	apiaryGroup.DELETE("/:id", h.apiaries.DeleteApiary)
	apiaryGroup.POST("/:id/select", h.apiaries.SetCurrentApiary)

	// Hive routes
	hiveGroup := journal.Group("/hives")
	hiveGroup.GET("", h.hives.ListHives)
	hiveGroup.POST("", h.hives.CreateHive)
	hiveGroup.GET("/current", h.hives.ListCurrentApiaryHives)
	hiveGroup.GET("/count/:year", h.hives.GetHiveCountByYear)
	hiveGroup.PUT("/:id", h.hives.UpdateHive)
	hiveGroup.DELETE("/:id", h.hives.DeleteHive)

	// Inspection routes
	inspectionGroup := journal.Group("/inspections")
	inspectionGroup.GET("", h.inspections.ListInspections)
	inspectionGroup.POST("", h.inspections.CreateInspection)
	inspectionGroup.GET("/this-month", h.inspections.ListThisMonthInspections)
	inspectionGroup.PUT("/:id", h.inspections.UpdateInspection)
	inspectionGroup.DELETE("/:id", h.inspections.DeleteInspection)

	// Task routes
	taskGroup := journal.Group("/tasks")
	taskGroup.GET("", h.tasks.ListTasks)
	taskGroup.POST("", h.tasks.CreateTask)
	taskGroup.GET("/pending", h.tasks.ListPendingTasks)
	taskGroup.PUT("/:id", h.tasks.UpdateTask)
	taskGroup.DELETE("/:id", h.tasks.DeleteTask)

	// Yield routes
	yieldGroup := journal.Group("/yields")
	yieldGroup.GET("", h.yields.ListYields)
	yieldGroup.POST("", h.yields.CreateYield)
	yieldGroup.PUT("/:id", h.yields.UpdateYield)
	yieldGroup.DELETE("/:id", h.yields.DeleteYield)

	// Stats routes
	statsGroup := journal.Group("/stats")
	statsGroup.GET("/monthly", h.stats.GetMonthlyStats)
	statsGroup.POST("/monthly/update", h.stats.UpdateMonthlyStats)
	statsGroup.POST("/monthly/reset", h.stats.ResetMonthlyStats)
	statsGroup.GET("/yearly", h.stats.GetYearlyStats)
	statsGroup.POST("/yearly/update", h.stats.UpdateYearlyStats)
	statsGroup.POST("/yearly/reset", h.stats.ResetYearlyStats)
	statsGroup.GET("/history", h.stats.GetHistory)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Storage health check
	if err := s.db.HealthCheck(); err != nil {
		status = "error"
		checks["storage"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["storage"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	// Store readiness check
	if s.store.Ready() {
		checks["store"] = map[string]interface{}{"status": "ok"}
	} else {
		status = "error"
		checks["store"] = map[string]interface{}{"status": "loading"}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  "1.21",
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	if !s.store.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "store_loading",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start loads the journal state and starts the HTTP server. The load runs in
// the background so the health endpoints come up immediately; journal routes
// return 503 until it finishes.
func (s *Server) Start(address string) error {
	go func() {
		if err := s.store.Load(context.Background()); err != nil {
			s.logger.Error("Journal state load failed", "error", err)
		}
	}()

	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Error("Error sending response", "error", err)
			}
		}
	}
}

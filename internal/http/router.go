// Package httpapi wires the HTTP transport (Gin) to the services, middleware,
// and handlers of the ops and intake API. It centralizes the cross-cutting
// concerns: tracing, correlation IDs, access logging, panic recovery,
// metrics, rate limiting, compression, CORS, and security headers.
//
// The API is secondary to the search engine itself, which is driven by the
// round queue and the request-event stream. It exposes search progress,
// accepts donation-request and donor-location writes when no upstream change
// stream is attached, and serves the probes and /metrics.
//
//go:generate swag init -g router.go -d ./,./handlers -o ./docs
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/config"
	_ "github.com/tbourn/donor-search/internal/http/docs" // registers the OpenAPI spec
	"github.com/tbourn/donor-search/internal/http/handlers"
	"github.com/tbourn/donor-search/internal/http/middleware"
	"github.com/tbourn/donor-search/internal/services"
)

// Deps are the collaborators the API needs beyond configuration.
type Deps struct {
	// DB backs the search, request, and donor services and the readiness probe.
	DB *gorm.DB
	// Events receives the request events produced by request writes,
	// normally the search initiator.
	Events services.EventHandler
	// Queue reports round-queue depth for the readiness probe.
	Queue handlers.QueueStatter
}

// dbPinger adapts a *gorm.DB to handlers.Pinger.
type dbPinger struct{ db *gorm.DB }

func (p dbPinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per donor/IP, probes exempt)
//  8. Gzip, CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByDonorOrIP(), "/health", "/ready", "/metrics")
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// CORS posture (safe defaults: allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
		DocsPrefix:   "/swagger/",
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(
		&services.SearchService{DB: deps.DB},
		services.NewRequestService(deps.DB, deps.Events),
		&services.DonorService{DB: deps.DB},
		dbPinger{db: deps.DB},
		deps.Queue,
	)

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Searches
		api.GET("/seekers/:seekerId/searches", h.ListSearches)
		api.GET("/seekers/:seekerId/searches/:requestId/:createdAt", h.GetSearch)

		// Requests
		api.PUT("/seekers/:seekerId/requests/:requestId/:createdAt", h.PutRequest)
		api.POST("/seekers/:seekerId/requests/:requestId/:createdAt/acceptances", h.AcceptRequest)

		// Donors
		api.PUT("/donors/:donorId/locations/:locationId", h.PutDonorLocation)
	}
}

// limitBody caps the request body at maxBytes; larger bodies fail to bind.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

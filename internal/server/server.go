package server

import (
	"context"
	"net/http"

	"eventory-payments/internal/config"
	"eventory-payments/internal/handler"
	"eventory-payments/internal/middleware"
	"eventory-payments/internal/ratelimit"
	"eventory-payments/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const defaultMaxBody = "64K"

type Services struct {
	Payment service.PaymentService
	Webhook service.WebhookService
	Scan    service.ScanService
	Health  service.HealthService
}

type Server struct {
	echo           *echo.Echo
	cfg            *config.Config
	tokens         *middleware.TokenVerifier
	webhookLimiter ratelimit.Limiter
	paymentHandler *handler.PaymentHandler
	scanHandler    *handler.ScanHandler
	healthHandler  *handler.HealthHandler
}

func NewServer(cfg *config.Config, services Services, tokens *middleware.TokenVerifier, webhookLimiter ratelimit.Limiter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.IPExtractor = ipExtractor(cfg.HTTP.IPSource)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logrus.StandardLogger()))
	e.Use(echomw.Recover())

	s := &Server{
		echo:           e,
		cfg:            cfg,
		tokens:         tokens,
		webhookLimiter: webhookLimiter,
		paymentHandler: handler.NewPaymentHandler(
			services.Payment,
			services.Webhook,
			cfg.Webhook.SignatureHeader,
			cfg.Webhook.MaxBodyBytes,
		),
		scanHandler:   handler.NewScanHandler(services.Scan),
		healthHandler: handler.NewHealthHandler(services.Health),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/health", s.healthHandler.Check)

	auth := middleware.AuthMiddleware(s.tokens)
	maxBody := s.cfg.HTTP.MaxBody
	if maxBody == "" {
		maxBody = defaultMaxBody
	}
	bodyLimit := echomw.BodyLimit(maxBody)
	appCORS := echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: s.cfg.CORS.AllowedOrigins,
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	})
	// processors call from their own infrastructure
	openCORS := echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, s.cfg.Webhook.SignatureHeader},
	})
	postAndPreflight := []string{http.MethodPost, http.MethodOptions}

	// -------- payments --------
	payments := api.Group("/payments")
	payments.Match(postAndPreflight, "/intake", s.paymentHandler.Intake, appCORS, auth, bodyLimit)
	payments.Match(postAndPreflight, "/webhook", s.paymentHandler.Webhook,
		openCORS,
		middleware.RateLimit("webhook", s.webhookLimiter),
	)

	// -------- tickets --------
	tickets := api.Group("/tickets")
	tickets.Match(postAndPreflight, "/scan", s.scanHandler.Scan,
		appCORS,
		auth,
		middleware.RequireRole("staff", "admin"),
		bodyLimit,
	)
}

// ipExtractor never reads forwarding headers unless asked to, and then only
// from private network proxies.
func ipExtractor(source string) echo.IPExtractor {
	switch source {
	case "xff":
		return echo.ExtractIPFromXFFHeader()
	case "real-ip":
		return echo.ExtractIPFromRealIPHeader()
	default:
		return echo.ExtractIPDirect()
	}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	logrus.WithField("address", address).Info("starting HTTP server")
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

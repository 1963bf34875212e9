package api

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/denzelpenzel/activation/assets"
	"github.com/denzelpenzel/activation/internal/config"
	"github.com/denzelpenzel/activation/internal/services"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Server represents the activation portal
type Server struct {
	config         *config.Config
	logger         *zap.Logger
	flowService    *services.FlowService
	sessionService *services.SessionService
	templates      *template.Template
	static         fs.FS
	limiter        RateLimiter
	router         *router.Router
	server         *fasthttp.Server
}

// NewServer creates a new portal server
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	flowService *services.FlowService,
	sessionService *services.SessionService,
	limiter RateLimiter,
) (*Server, error) {
	templates, err := template.ParseFS(assets.EmbeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	static, err := fs.Sub(assets.EmbeddedFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	s := &Server{
		config:         cfg,
		logger:         logger,
		flowService:    flowService,
		sessionService: sessionService,
		templates:      templates,
		static:         static,
		limiter:        limiter,
		router:         router.New(),
	}

	s.setupRoutes()
	s.setupServer()

	return s, nil
}

// setupRoutes configures all portal routes
func (s *Server) setupRoutes() {
	s.router.GlobalOPTIONS = s.optionsHandler

	// Activation page
	s.router.GET("/activate", s.withMiddleware(s.activatePageHandler))
	s.router.POST("/activate", s.withMiddleware(s.activateSubmitHandler))
	s.router.POST("/activate/password-check", s.withMiddleware(s.passwordCheckHandler))
	s.router.GET(s.flowService.SuccessPath(), s.withMiddleware(s.successPageHandler))

	s.router.GET("/static/{filepath:*}", s.withMiddleware(s.staticHandler))

	// Health check endpoint
	s.router.GET("/api/health", s.withMiddleware(s.healthHandler))
}

// setupServer configures the FastHTTP server
func (s *Server) setupServer() {
	s.server = &fasthttp.Server{
		Handler:                       s.router.Handler,
		Name:                          "Activation-Portal",
		ReadTimeout:                   10 * time.Second,
		WriteTimeout:                  s.config.Upstream.Timeout + 10*time.Second,
		IdleTimeout:                   60 * time.Second,
		MaxRequestBodySize:            64 * 1024, // 64KB, forms only
		DisableHeaderNamesNormalizing: true,
		NoDefaultServerHeader:         true,
		NoDefaultDate:                 true,
		NoDefaultContentType:          true,
	}
}

// Start starts the portal server
func (s *Server) Start() error {
	s.logger.Info("Starting activation portal",
		zap.String("address", s.config.Server.Address),
		zap.String("environment", s.config.Server.Environment))

	return s.server.ListenAndServe(s.config.Server.Address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down activation portal")
	return s.server.ShutdownWithContext(ctx)
}

// withMiddleware wraps handlers with common middleware
func (s *Server) withMiddleware(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return s.loggingMiddleware(
		s.securityMiddleware(
			s.rateLimitMiddleware(handler),
		),
	)
}

// optionsHandler answers preflight requests without granting cross-origin access
func (s *Server) optionsHandler(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Allow", "GET, POST, OPTIONS")
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// healthHandler handles health check requests
func (s *Server) healthHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	response := `{"status":"healthy","service":"activation-portal","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`
	ctx.SetBodyString(response)
}

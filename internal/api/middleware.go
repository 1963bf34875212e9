package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// loggingMiddleware logs HTTP requests. Query strings are never logged since
// they carry activation tokens.
func (s *Server) loggingMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		requestID := uuid.NewString()
		ctx.SetUserValue("request_id", requestID)
		ctx.Response.Header.Set("X-Request-ID", requestID)

		next(ctx)

		s.logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", string(ctx.Method())),
			zap.String("path", string(ctx.Path())),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("user_agent", string(ctx.UserAgent())),
		)
	}
}

// securityMiddleware adds security headers
func (s *Server) securityMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
		ctx.Response.Header.Set("X-Frame-Options", "DENY")
		ctx.Response.Header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		ctx.Response.Header.Set("Content-Security-Policy", "default-src 'self'; form-action 'self'; frame-ancestors 'none'")
		ctx.Response.Header.Set("Referrer-Policy", "no-referrer")
		// Pages embed tokens and signed sessions
		ctx.Response.Header.Set("Cache-Control", "no-store")

		ctx.Response.Header.Del("Server")

		next(ctx)
	}
}

// rateLimitMiddleware rejects clients that exceed the per-minute budget.
// Limiter failures let the request through.
func (s *Server) rateLimitMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if s.limiter == nil {
			next(ctx)
			return
		}

		allowed, retryAfter, err := s.limiter.Allow(ctx, ctx.RemoteIP().String())
		if err != nil {
			s.logger.Warn("Rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			ctx.Response.Header.Set("Retry-After", strconv.Itoa(seconds))
			s.sendErrorResponse(ctx, fasthttp.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		next(ctx)
	}
}

// sendErrorResponse sends a JSON error response
func (s *Server) sendErrorResponse(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)

	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	jsonData, _ := json.Marshal(response)
	ctx.SetBody(jsonData)
}

// sendSuccessResponse sends a JSON success response
func (s *Server) sendSuccessResponse(ctx *fasthttp.RequestCtx, data interface{}) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	response := map[string]interface{}{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal response", zap.Error(err))
		s.sendErrorResponse(ctx, fasthttp.StatusInternalServerError, "Internal server error")
		return
	}

	ctx.SetBody(jsonData)
}

// parseJSONBody parses JSON request body
func (s *Server) parseJSONBody(ctx *fasthttp.RequestCtx, dest interface{}) error {
	if !ctx.IsPost() {
		return fmt.Errorf("method not allowed")
	}

	contentType := string(ctx.Request.Header.ContentType())
	if !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("content-type must be application/json")
	}

	body := ctx.PostBody()
	if len(body) == 0 {
		return fmt.Errorf("request body is empty")
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// Package graphql is a minimal GraphQL-over-HTTP client. Every value is sent
// through the variables map, never spliced into the query document.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the response carries neither errors nor
// the requested field.
var ErrEmptyResponse = errors.New("response contains no data")

// Request is a GraphQL operation with bound variables
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Error is a single entry of a GraphQL error list
type Error struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// ResponseError wraps a non-empty top-level error list
type ResponseError struct {
	Errors []Error
}

// Error returns the first message of the list
func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 || e.Errors[0].Message == "" {
		return "unknown GraphQL error"
	}
	return e.Errors[0].Message
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []Error                    `json:"errors"`
}

// Doer is the subset of fasthttp.Client used by Client
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

// Client sends GraphQL operations to a single endpoint
type Client struct {
	endpoint string
	http     Doer
	logger   *zap.Logger
}

// NewClient creates a new GraphQL client
func NewClient(endpoint string, httpClient Doer, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		logger:   logger,
	}
}

// NewHTTPClient returns a fasthttp client tuned for short API calls
func NewHTTPClient(timeout time.Duration) *fasthttp.Client {
	return &fasthttp.Client{
		Name:                          "activation-portal",
		ReadTimeout:                   timeout,
		WriteTimeout:                  timeout,
		MaxIdleConnDuration:           60 * time.Second,
		MaxResponseBodySize:           1024 * 1024, // 1MB
		DisableHeaderNamesNormalizing: true,
		NoDefaultUserAgentHeader:      true,
	}
}

// Do executes req and decodes data[field] into dest. A top-level error list
// takes priority over data and is returned as *ResponseError. The context
// deadline, when set, bounds the whole exchange.
func (c *Client) Do(ctx context.Context, req Request, field string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(httpReq)
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(httpResp)

	requestID := uuid.NewString()
	httpReq.SetRequestURI(c.endpoint)
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.SetContentType("application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.SetBody(body)

	start := time.Now()
	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(httpReq, httpResp, deadline)
	} else {
		err = c.http.Do(httpReq, httpResp)
	}
	if err != nil {
		c.logger.Warn("GraphQL request failed",
			zap.String("operation", req.OperationName),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("request failed: %w", err)
	}

	status := httpResp.StatusCode()
	c.logger.Debug("GraphQL request completed",
		zap.String("operation", req.OperationName),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))

	var parsed response
	if err := json.Unmarshal(httpResp.Body(), &parsed); err != nil {
		if status < 200 || status >= 300 {
			return fmt.Errorf("unexpected status %d", status)
		}
		return fmt.Errorf("invalid JSON response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		return &ResponseError{Errors: parsed.Errors}
	}

	if status < 200 || status >= 300 {
		return fmt.Errorf("unexpected status %d", status)
	}

	raw, ok := parsed.Data[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("invalid %s payload: %w", field, err)
	}

	return nil
}

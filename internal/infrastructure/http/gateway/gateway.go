// Package gateway builds preconfigured HTTP clients for the remote API.
// Every gateway shares a fixed timeout, attaches the bearer token when asked
// to, ends the session on 401 and reports every failure as an
// *errors.AppError with a human readable message.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alchemorsel/client/internal/infrastructure/config"
	"github.com/alchemorsel/client/internal/infrastructure/monitoring"
	"github.com/alchemorsel/client/internal/infrastructure/session"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

const (
	// DefaultTimeout bounds every request, connection to last body byte.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 10 << 20
)

// Sessions is the part of the session store the gateway needs
type Sessions interface {
	TokenSource
	Evict(ctx context.Context, reason session.EndReason) bool
}

// Factory creates gateways that share configuration and collaborators
type Factory struct {
	baseURL        string
	sessions       Sessions
	logger         *zap.Logger
	doer           Doer
	limiter        *rate.Limiter
	metrics        *monitoring.GatewayMetrics
	tracerProvider trace.TracerProvider
	maxBody        int64
}

// Option configures a Factory
type Option func(*Factory)

// WithDoer replaces the base HTTP client. Tests use it to shorten timeouts.
func WithDoer(d Doer) Option {
	return func(f *Factory) { f.doer = d }
}

// WithMetrics records request outcomes and evictions
func WithMetrics(m *monitoring.GatewayMetrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// WithTracerProvider sets the provider used by the base transport
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Factory) { f.tracerProvider = tp }
}

// WithRateLimit limits outgoing requests across all gateways of the factory
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *Factory) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// NewFactory validates cfg and returns a gateway factory. A missing or
// relative base URL is a CodeConfiguration error.
func NewFactory(cfg config.APIConfig, sessions Sessions, logger *zap.Logger, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sessions == nil {
		return nil, apperrors.NewInvalidArgumentError("gateway: session store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Factory{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		sessions: sessions,
		logger:   logger.Named("gateway"),
		maxBody:  cfg.MaxResponseBytes,
	}
	WithRateLimit(cfg.RateLimit, cfg.RateBurst)(f)
	for _, opt := range opts {
		opt(f)
	}
	if f.maxBody <= 0 {
		f.maxBody = DefaultMaxResponseBytes
	}
	if f.doer == nil {
		f.doer = NewHTTPClient(DefaultTimeout, f.tracerProvider)
	}
	return f, nil
}

// Create returns a gateway. With useCredential the current bearer token is
// attached to each request.
func (f *Factory) Create(useCredential bool) *Gateway {
	mws := []Middleware{RequestID()}
	if useCredential {
		mws = append(mws, BearerToken(f.sessions))
	}
	if f.limiter != nil {
		mws = append(mws, RateLimit(f.limiter))
	}
	if f.metrics != nil {
		mws = append(mws, Instrument(f.metrics))
	}

	return &Gateway{
		factory:       f,
		doer:          Chain(f.doer, mws...),
		authenticated: useCredential,
	}
}

// Public returns a gateway that never sends credentials
func (f *Factory) Public() *Gateway {
	return f.Create(false)
}

// Authenticated returns a gateway that sends the current bearer token
func (f *Factory) Authenticated() *Gateway {
	return f.Create(true)
}

// BaseURL returns the API root all paths are resolved against
func (f *Factory) BaseURL() string {
	return f.baseURL
}

// Gateway performs requests against the API. Safe for concurrent use.
type Gateway struct {
	factory       *Factory
	doer          Doer
	authenticated bool
}

// MultipartFile is a single file upload
type MultipartFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// Authenticated reports whether the gateway sends credentials
func (g *Gateway) Authenticated() bool {
	return g.authenticated
}

// Get performs a GET and decodes the payload into out
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.send(ctx, http.MethodGet, path, nil, "", out)
}

// Post sends body as JSON and decodes the payload into out
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.sendJSON(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the payload into out
func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.sendJSON(ctx, http.MethodPut, path, body, out)
}

// Delete performs a DELETE and decodes the payload into out
func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.send(ctx, http.MethodDelete, path, nil, "", out)
}

// PostMultipart uploads file as multipart/form-data
func (g *Gateway) PostMultipart(ctx context.Context, path string, file MultipartFile, out any) error {
	if file.Content == nil {
		return apperrors.NewInvalidArgumentError("A file is required")
	}
	field := file.FieldName
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, file.FileName)
	if err != nil {
		return apperrors.Wrap(err, "Failed to prepare the upload")
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return apperrors.Wrap(err, "Failed to read the file to upload")
	}
	if err := w.Close(); err != nil {
		return apperrors.Wrap(err, "Failed to prepare the upload")
	}

	return g.send(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), out)
}

// Ping checks that the API answers. Any response below 500 counts as up.
func (g *Gateway) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.factory.baseURL+"/", nil)
	if err != nil {
		return apperrors.Wrap(err, "Failed to create request")
	}
	resp, err := g.doer.Do(req)
	if err != nil {
		return NormalizeTransport(ctx, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, g.factory.maxBody))

	if resp.StatusCode >= http.StatusInternalServerError {
		return NormalizeResponse(resp.StatusCode, body)
	}
	return nil
}

func (g *Gateway) sendJSON(ctx context.Context, method, path string, body, out any) error {
	if body == nil {
		return g.send(ctx, method, path, nil, "", out)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewInvalidArgumentError("Request body cannot be encoded").WithCause(err)
	}
	return g.send(ctx, method, path, bytes.NewReader(payload), "application/json", out)
}

func (g *Gateway) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	f := g.factory

	req, err := http.NewRequestWithContext(ctx, method, f.url(path), body)
	if err != nil {
		return apperrors.NewInvalidArgumentError(fmt.Sprintf("Invalid request path %q", path)).WithCause(err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	f.logger.Debug("API request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Bool("authenticated", g.authenticated),
	)

	resp, err := g.doer.Do(req)
	if err != nil {
		appErr := NormalizeTransport(ctx, err)
		f.logger.Warn("API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
		return appErr
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return NormalizeTransport(ctx, err)
	}
	if int64(len(payload)) > f.maxBody {
		return apperrors.NewAppError(apperrors.CodeAPIError, MessageTooLarge, "").WithStatus(resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return g.fail(ctx, req, resp.StatusCode, payload)
	}

	if err := decodePayload(payload, out); err != nil {
		return apperrors.NewAppError(apperrors.CodeAPIError, MessageBadPayload, "").
			WithStatus(resp.StatusCode).
			WithCause(err)
	}
	return nil
}

// fail normalizes an error response. A 401 ends the current session on every
// gateway, authenticated or not.
func (g *Gateway) fail(ctx context.Context, req *http.Request, status int, payload []byte) error {
	f := g.factory

	if status == http.StatusUnauthorized && f.sessions.Evict(ctx, session.ReasonUnauthorized) {
		if f.metrics != nil {
			f.metrics.RecordEviction()
		}
	}

	appErr := NormalizeResponse(status, payload)
	f.logger.Warn("API error response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
		zap.String("message", appErr.Message),
	)
	return appErr
}

func (f *Factory) url(path string) string {
	if path == "" {
		return f.baseURL
	}
	return f.baseURL + "/" + strings.TrimLeft(path, "/")
}

// decodePayload delivers the response body. *string receives plain text
// when the body is not a JSON string; *json.RawMessage and *[]byte receive
// the bytes unchanged.
func decodePayload(payload []byte, out any) error {
	switch o := out.(type) {
	case nil:
		return nil
	case *json.RawMessage:
		*o = append((*o)[:0], payload...)
		return nil
	case *[]byte:
		*o = append((*o)[:0], payload...)
		return nil
	case *string:
		trimmed := bytes.TrimSpace(payload)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			if err := json.Unmarshal(trimmed, o); err == nil {
				return nil
			}
		}
		*o = string(payload)
		return nil
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

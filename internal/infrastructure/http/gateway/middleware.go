package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alchemorsel/client/internal/infrastructure/monitoring"
)

// RequestIDHeader carries a per-request id to the API
const RequestIDHeader = "X-Request-ID"

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do implements Doer
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware decorates a Doer
type Middleware func(next Doer) Doer

// Chain wraps base with mws. The first middleware sees the request first.
func Chain(base Doer, mws ...Middleware) Doer {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// TokenSource provides the current bearer token, "" when there is none.
type TokenSource interface {
	Token(ctx context.Context) string
}

// RequestID sets X-Request-ID when the caller did not.
func RequestID() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) == "" {
				req.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return next.Do(req)
		})
	}
}

// BearerToken attaches "Authorization: Bearer <token>" when source holds a
// token. Without one the request goes out with no Authorization header.
func BearerToken(source TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if token := source.Token(req.Context()); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			} else {
				req.Header.Del("Authorization")
			}
			return next.Do(req)
		})
	}
}

// RateLimit waits for limiter before each request. A wait that cannot
// finish before the request's deadline fails as a timeout.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				if ctxErr := req.Context().Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return next.Do(req)
		})
	}
}

// Instrument records request outcomes in metrics
func Instrument(metrics *monitoring.GatewayMetrics) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			if err != nil {
				metrics.RecordTransportError(req.Method, string(classifyTransport(req.Context(), err)), time.Since(start))
				return nil, err
			}
			metrics.RecordRequest(req.Method, resp.StatusCode, time.Since(start))
			return resp, nil
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gizzletv/client/internal/logging"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base with the decorators, the first being outermost. A nil base
// uses http.DefaultTransport.
func Chain(base http.RoundTripper, decorators ...func(http.RoundTripper) http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(decorators) - 1; i >= 0; i-- {
		base = decorators[i](base)
	}
	return base
}

// RequestLogger decorates outbound requests with structured logging metadata
// and an X-Request-ID header.
func RequestLogger(base *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			requestID := logging.RequestIDFromContext(r.Context())
			if requestID == "" {
				requestID = uuid.NewString()
			}

			logger := base
			if ctxLogger := logging.FromContext(r.Context()); ctxLogger != slog.Default() {
				logger = ctxLogger
			}
			reqLogger := logger.With(
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
			)

			ctx := logging.WithLogger(r.Context(), reqLogger)
			ctx = logging.WithRequestID(ctx, requestID)
			out := r.Clone(ctx)
			out.Header.Set("X-Request-ID", requestID)

			resp, err := next.RoundTrip(out)
			if err != nil {
				reqLogger.Warn("request failed",
					slog.Duration("duration", time.Since(start)),
					slog.Any("error", err),
				)
				return nil, err
			}
			reqLogger.Info("request completed",
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", time.Since(start)),
			)
			return resp, nil
		})
	}
}

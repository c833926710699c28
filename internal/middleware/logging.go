package middleware

import (
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/capitalize-ai/chatdesk/pkg/logger"
	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

// Logging creates request logging middleware. It assigns a correlation id,
// logs one line per request and records request metrics.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := r.Header.Get(CorrelationHeader)
			if correlationID == "" {
				correlationID = uuid.New().String()
			}
			w.Header().Set(CorrelationHeader, correlationID)
			r = r.WithContext(WithCorrelationID(r.Context(), correlationID))

			// httpsnoop keeps Flusher and Hijacker visible to the view stream.
			m := httpsnoop.CaptureMetrics(next, w, r)

			route := routePattern(r)
			if ce := log.Check(requestLevel(route, m.Code), "request completed"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", m.Code),
					zap.Int64("bytes", m.Written),
					zap.Duration("duration", m.Duration),
					zap.String("correlation_id", correlationID),
					zap.String("remote_addr", r.RemoteAddr),
				)
			}

			metrics.RecordRequest(r.Method, route, http.StatusText(m.Code), m.Duration.Seconds())
		})
	}
}

// requestLevel demotes probe traffic and promotes failures.
func requestLevel(route string, status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	case route == "/health" || route == "/ready" || route == "/metrics" || strings.HasSuffix(route, "/stream"):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// routePattern labels metrics with the chi route so path parameters do not
// multiply series.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

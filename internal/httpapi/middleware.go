package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/metrics"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tracing"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFrom returns the request ID stored by the middleware, or ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Limiter is a hot-swappable token bucket shared by all routes
type Limiter struct {
	bucket atomic.Pointer[rate.Limiter]
}

// NewLimiter builds the shared limiter. rps <= 0 disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	l := &Limiter{}
	l.Update(rps, burst)
	return l
}

// Update replaces the bucket; the new one starts full
func (l *Limiter) Update(rps float64, burst int) {
	if rps <= 0 {
		l.bucket.Store(nil)
		return
	}
	if burst < 1 {
		burst = 1
	}
	l.bucket.Store(rate.NewLimiter(rate.Limit(rps), burst))
}

// Allow reports whether one more request may proceed now
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	b := l.bucket.Load()
	return b == nil || b.Allow()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// wrap applies request ID, tracing, metrics, access logging and rate limiting
// to one route. lim may be nil.
func wrap(route string, lim *Limiter, logger *zap.Logger, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx, span := tracing.StartServerSpan(r, route)
		defer span.End()
		span.SetAttributes(attribute.String("request.id", id))
		ctx = context.WithValue(ctx, requestIDKey, id)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		if !lim.Allow() {
			metrics.HTTPRateLimited.WithLabelValues(route).Inc()
			writeError(rec, http.StatusTooManyRequests, "rate limit exceeded")
		} else {
			next(rec, r.WithContext(ctx))
		}

		span.SetAttributes(attribute.Int("http.response.status_code", rec.code))
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		logger.Debug("HTTP request",
			zap.String("request_id", id),
			zap.String("route", route),
			zap.Int("code", rec.code),
			zap.Duration("duration", time.Since(start)))
	})
}

package httpapi

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/ratelimit"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

// TokenParser resolves a bearer token into the caller identity.
type TokenParser interface {
	Parse(token string) (identity.Identity, error)
}

// requestContext copies chi's request id into the identity context so that
// logger.FromContext tags every log line with it, and echoes it to the client.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set(middleware.RequestIDHeader, reqID)
			r = r.WithContext(identity.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

// callerSlot is filled by authenticate so that accessLog, which runs outside of it,
// can tag its line with the caller.
type callerSlot struct {
	id identity.Identity
}

type callerSlotKey struct{}

func rememberCaller(ctx context.Context, id identity.Identity) {
	if slot, ok := ctx.Value(callerSlotKey{}).(*callerSlot); ok {
		slot.id = id
	}
}

// accessLog records one log line and the HTTP metrics per request. The route label is
// the matched chi pattern, never the raw path.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		slot := &callerSlot{}
		r = r.WithContext(context.WithValue(r.Context(), callerSlotKey{}, slot))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		duration := time.Since(start)
		observer.ObserveHTTPRequest(r.Method, route, status, duration)

		logCtx := r.Context()
		if slot.id.UserID != "" {
			logCtx = identity.WithIdentity(logCtx, slot.id)
		}
		log := logger.FromContext(logCtx)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", duration),
			zap.String("remote_ip", r.RemoteAddr),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("request completed", fields...)
			return
		}
		log.Info("request completed", fields...)
	})
}

// authenticate requires a valid bearer token and stores the caller identity in the context.
func authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			id, err := tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				logger.FromContext(r.Context()).Debug("Rejected bearer token", zap.Error(err))
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			rememberCaller(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// rateLimit admits requests per caller identity, falling back to the client address
// when no identity is present. A limiter failure lets the request through.
func rateLimit(limiter ratelimit.Limiter, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if id, err := identity.FromContext(r.Context()); err == nil {
				key = id.UserID
			}
			key = route + ":" + key

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.FromContext(r.Context()).Error("Rate limiter unavailable, admitting request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				observer.IncRateLimitRejection(route)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
				writeError(w, http.StatusTooManyRequests, msgRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so that a client honoring the header never retries early.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

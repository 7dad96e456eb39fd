package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"where2meet/internal/domain/poll"
	"where2meet/internal/metrics"
	"where2meet/internal/platform/apperr"
	jwtpkg "where2meet/internal/platform/jwt"
)

type ctxKey string

const ctxKeyCaller ctxKey = "caller"

var slogLogger = slog.Default()

func SetLogger(l *slog.Logger) {
	if l != nil {
		slogLogger = l
	}
}

// AuthMiddleware resolves the bearer token into a poll.Caller. Tokens are
// minted by the external auth service.
func AuthMiddleware(jm *jwtpkg.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				errorResponse(w, apperr.Unauthorized("missing_token", "missing or malformed authorization header", nil))
				return
			}

			claims, err := jm.Parse(raw)
			if err != nil {
				errorResponse(w, apperr.Unauthorized("invalid_token", "invalid token", err))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyCaller, poll.Caller{
				UserID:      claims.UserID,
				Name:        claims.Name,
				Groups:      claims.Groups,
				AdminGroups: claims.AdminGroups,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

func callerFromCtx(r *http.Request) poll.Caller {
	if c, ok := r.Context().Value(ctxKeyCaller).(poll.Caller); ok {
		return c
	}
	return poll.Caller{}
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitByIP allows burst requests per client IP, refilled at limit.
// Limiters of idle clients expire after ten minutes.
func RateLimitByIP(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiters := &ipLimiters{
		entries: cache.New(10*time.Minute, 20*time.Minute),
		limit:   limit,
		burst:   burst,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.get(clientIP(r)).Allow() {
				errorResponse(w, apperr.TooManyRequests("rate_limited", "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ipLimiters struct {
	entries *cache.Cache
	limit   rate.Limit
	burst   int
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	if v, ok := l.entries.Get(ip); ok {
		lim := v.(*rate.Limiter)
		l.entries.SetDefault(ip, lim)
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	// Add fails when a concurrent request created the entry first.
	if err := l.entries.Add(ip, lim, cache.DefaultExpiration); err != nil {
		if v, ok := l.entries.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(rw, r)

		status := rw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		metrics.IncRequest(r.Method, route, status)

		slogLogger.Info("request",
			"method", r.Method,
			"path", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func clientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		first, _, _ := strings.Cut(xfwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package handler

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/auth"
	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/util"
)

type RouterConfig struct {
	Wizard         *WizardHandler
	Referral       *ReferralHandler
	Auth           *auth.Authenticator
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	HealthChecks   []HealthCheck
	RequireHTTPS   bool
	AllowedOrigins []string
	Logger         *zap.Logger
	// TrustProxy takes the client address from the last X-Forwarded-For hop,
	// the one appended by our own load balancer.
	TrustProxy bool

	// RateLimiter is optional. Limits are requests per minute per client IP.
	RateLimiter RateLimiter
	SiteLimit   int
	APILimit    int
}

// RateLimiter is satisfied by the Redis rate limit cache.
type RateLimiter interface {
	Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error)
}

// requireHTTPS rejects any request that wasn't made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired)
			w.Write([]byte(`{"error":"https required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg RouterConfig) chi.Router {
	router := chi.NewRouter()

	if cfg.RequireHTTPS {
		router.Use(requireHTTPS)
	}

	router.Use(middleware.RequestID)
	if cfg.TrustProxy {
		router.Use(ProxyRealIP)
	}
	router.Use(LoggerMiddleware(cfg.Logger))
	router.Use(MetricsMiddleware(cfg.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/health", HealthHandler(cfg.HealthChecks))
	if cfg.Gatherer != nil {
		router.With(InternalOnly).Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(RateLimitMiddleware(cfg.RateLimiter, "api", cfg.APILimit))
		r.With(cfg.Auth.Require(auth.PermAddReferralLink)).Post("/referral_link/", cfg.Referral.Create)
	})

	router.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.RateLimiter, "site", cfg.SiteLimit))
		cfg.Wizard.RegisterRoutes(r)
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}

// ProxyRealIP replaces RemoteAddr with the rightmost X-Forwarded-For entry.
// Earlier entries are supplied by the client and are ignored.
func ProxyRealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hops := forwardedHops(r); len(hops) > 0 {
			r.RemoteAddr = hops[len(hops)-1]
		}
		next.ServeHTTP(w, r)
	})
}

// InternalOnly answers 403 to requests that came in through the public load
// balancer, which shows up as more than one X-Forwarded-For hop.
func InternalOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(forwardedHops(r)) > 1 {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Forbidden."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

// RateLimitMiddleware answers 429 once a client IP has made more than limit
// requests in the current minute. A nil limiter or a non-positive limit
// disables it, and limiter errors let the request through.
func RateLimitMiddleware(limiter RateLimiter, scope string, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), scope, clientIP(r), limit, time.Minute)
			if err != nil {
				util.Warn("Rate limiter unavailable", util.String("scope", scope), util.ErrorField(err))
			} else if !ok {
				w.Header().Set("Retry-After", "60")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = util.Get()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// MetricsMiddleware records request latency by route pattern so referral
// codes do not become label values.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveHTTPRequest(r.Method, route, strconv.Itoa(ww.Status()), time.Since(start).Seconds())
		})
	}
}

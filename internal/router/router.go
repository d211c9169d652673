package router

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/ai"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/auth"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/utilities"
)

const msgPageNotFound = "صفحة غير موجودة"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id RequestIDMiddleware attached to ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestIDMiddleware reuses an inbound X-Request-ID or mints a new one, and
// echoes it on the response.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = utilities.NewRequestID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

// LoggingMiddleware logs every request at debug level, and failed ones at warn.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. The strict
// content policy and frame denial apply to the JSON API only; pages and
// published portfolios load fonts, scripts and images from CDNs and are
// previewed in a same-origin iframe.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), geolocation=()")

			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("X-Frame-Options", "DENY")
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none';")
			} else {
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			}

			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware answers preflight requests and tags responses for the
// allowed origins. "*" allows any origin.
func CORSMiddleware(allowed []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || slices.Contains(allowed, origin)) {
				h := w.Header()
				if wildcard {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				h.Set("Access-Control-Expose-Headers", "X-Request-ID")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handlers groups the per-domain handlers the router mounts.
type Handlers struct {
	AI        *ai.Handler
	Auth      *auth.Handler
	Portfolio *portfolio.Handler
}

// Options configures the non-API surface.
type Options struct {
	PublicDir      string
	AllowedOrigins []string
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/ai-status", h.AI.Status)
	mux.HandleFunc("GET /api/config", h.AI.Config)
	mux.HandleFunc("POST /api/ai/chat", h.AI.Chat)
	mux.HandleFunc("POST /api/extract-data", h.AI.ExtractData)
	mux.HandleFunc("POST /api/generate-portfolio", h.AI.GeneratePortfolio)
	mux.HandleFunc("POST /api/enhance-portfolio", h.AI.EnhancePortfolio)
	mux.HandleFunc("POST /api/generate", h.AI.Generate)
	mux.HandleFunc("POST /api/edit-portfolio", h.AI.EditPortfolio)

	mux.HandleFunc("POST /api/auth/signup", h.Auth.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("GET /api/auth/user", h.Auth.User)

	mux.HandleFunc("POST /api/publish", h.Portfolio.Publish)
	mux.HandleFunc("GET /api/portfolio/{slug}", h.Portfolio.Get)
	mux.HandleFunc("DELETE /api/portfolio/{slug}", h.Portfolio.Delete)
	mux.HandleFunc("PUT /api/portfolio/{oldSlug}/rename", h.Portfolio.Rename)
	mux.HandleFunc("GET /api/user-portfolios/{userId}", h.Portfolio.ListByOwner)
	mux.HandleFunc("GET /v/{slug}", h.Portfolio.View)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/index.html", http.StatusFound)
	})
	mux.Handle("/", staticFiles(logger, opts.PublicDir))

	// request id outermost so every later layer can log it
	handler := SecurityHeadersMiddleware()(mux)
	handler = CORSMiddleware(opts.AllowedOrigins)(handler)
	handler = LoggingMiddleware(logger)(handler)
	return RequestIDMiddleware()(handler)
}

// staticFiles serves regular files under dir and answers everything else,
// directories included, with the localized plain-text 404. Files go through
// ServeContent so /index.html is not redirected back to /.
func staticFiles(logger *zap.SugaredLogger, dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
			if f, err := os.Open(name); err == nil {
				defer f.Close()
				if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
					http.ServeContent(w, r, info.Name(), info.ModTime(), f)
					return
				}
			}
		}
		logger.Debugw("not found", "method", r.Method, "path", r.URL.Path)
		http.Error(w, msgPageNotFound, http.StatusNotFound)
	})
}

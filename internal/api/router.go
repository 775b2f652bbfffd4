package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avonfire/stationhouse/internal/auth"
	"github.com/avonfire/stationhouse/internal/blog"
	"github.com/avonfire/stationhouse/internal/contact"
	"github.com/avonfire/stationhouse/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Auth           *auth.Service
	BlogStore      *blog.Store
	ContactStore   *contact.Store
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	if len(deps.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.AllowedOrigins))
	}

	// Handlers.
	authH := newAuthHandler(deps.Auth, deps.Metrics)
	invitations := newInvitationsHandler(deps.Auth)
	blogH := newBlogHandler(deps.BlogStore)
	contactH := newContactHandler(deps.ContactStore)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics summary.
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	// Public auth routes.
	r.Route("/api/v1/auth", func(ar chi.Router) {
		ar.Post("/signup", authH.SignUp)
		ar.Post("/signin", authH.SignIn)
		ar.Post("/verify", authH.Verify)
		ar.Post("/resend", authH.ResendCode)
		ar.Post("/signout", authH.SignOut)
		ar.Post("/reset/request", authH.RequestReset)
		ar.Post("/reset/verify", authH.VerifyResetCode)
		ar.Post("/reset/confirm", authH.ConfirmReset)
		ar.Get("/viewer", authH.Viewer)
		ar.With(auth.SessionMiddleware(deps.Auth)).Get("/session", authH.Session)
		ar.Get("/has-admin", authH.HasAdmin)
		ar.Post("/register-first-admin", authH.RegisterFirstAdmin)
	})

	// Public content routes.
	r.Get("/api/v1/posts", func(w http.ResponseWriter, r *http.Request) {
		blogH.ListPosts(w, r, false)
	})
	r.Get("/api/v1/posts/{slug}", blogH.GetPost)
	r.Get("/api/v1/categories", blogH.ListCategories)
	r.Post("/api/v1/contact", contactH.SubmitMessage)
	r.Get("/api/v1/invitations/{token}", invitations.VerifyInvitation)

	// Admin routes (require an admin session).
	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(auth.AdminMiddleware(deps.Auth))

		// Post management.
		ar.Get("/posts", func(w http.ResponseWriter, r *http.Request) {
			blogH.ListPosts(w, r, true)
		})
		ar.Post("/posts", blogH.CreatePost)
		ar.Put("/posts/{id}", blogH.UpdatePost)
		ar.Delete("/posts/{id}", blogH.DeletePost)

		// Category management.
		ar.Post("/categories", blogH.CreateCategory)
		ar.Put("/categories/{id}", blogH.UpdateCategory)
		ar.Delete("/categories/{id}", blogH.DeleteCategory)

		// Contact inbox.
		ar.Get("/contact", contactH.ListMessages)
		ar.Put("/contact/{id}/status", contactH.UpdateMessageStatus)
		ar.Delete("/contact/{id}", contactH.DeleteMessage)

		// Invitation management.
		ar.Post("/invitations", invitations.CreateInvitation)
		ar.Get("/invitations", invitations.ListInvitations)
		ar.Delete("/invitations/{id}", invitations.DeleteInvitation)
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
		)
	})
}

// metricsMiddleware records request counts and latencies, labeled by the chi
// route pattern rather than the raw path to keep cardinality bounded.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

// corsMiddleware allows browser calls from the configured frontend origins.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"gitea.jw6.us/james/teamtasks/internal/api"
	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/config"
	"gitea.jw6.us/james/teamtasks/internal/http/csrf"
	"gitea.jw6.us/james/teamtasks/internal/http/ratelimit"
	"gitea.jw6.us/james/teamtasks/internal/metrics"
	"gitea.jw6.us/james/teamtasks/internal/storage"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/ui"
)

// Deps are the handlers and services the router mounts.
type Deps struct {
	Config  *config.Config
	Store   *store.Store
	Auth    *auth.Service
	API     *api.Handler
	UI      *ui.Handler
	Objects storage.ObjectStore
}

// NewRouter wires all HTTP routes for the web UI and the JSON API.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	// Sign-in endpoints: 5 requests per second, burst of 10
	authRateLimiter := ratelimit.New(ratelimit.Options{
		Rate:           rate.Limit(5),
		Burst:          10,
		IdleTTL:        5 * time.Minute,
		TrustedProxies: cfg.TrustedProxies,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(overrideMethod)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := d.Store.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	// Uploaded files are served directly only when they live on local disk;
	// GCS objects carry their own public URLs.
	if local, ok := d.Objects.(*storage.Local); ok {
		r.Handle("/files/*", http.StripPrefix("/files", local.Handler()))
	}

	r.Group(func(r chi.Router) {
		r.Use(authRateLimiter.Middleware())

		r.Get("/auth/login", d.Auth.BeginOAuth)
		r.Get("/auth/callback", d.Auth.HandleOAuthCallback)

		r.Group(func(r chi.Router) {
			r.Use(csrf.Middleware(cfg))
			r.Get("/login", d.UI.LoginPage)
			r.Post("/login", d.UI.Login)
			r.Get("/signup", d.UI.SignUpPage)
			r.Post("/signup", d.UI.SignUp)
		})

		d.API.PublicRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.RequireAPIAuth)
		r.Use(limitUploads(cfg.MaxUploadBytes))
		r.Use(csrfUnlessBearer(cfg))
		d.API.Routes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.RequireSession)
		r.Use(limitUploads(cfg.MaxUploadBytes))
		r.Use(csrf.Middleware(cfg))

		r.Get("/", d.UI.Home)
		r.Get("/dashboard", d.UI.Dashboard)
		r.Get("/tasks", d.UI.MyTasks)
		r.Get("/tasks/{id}", d.UI.ViewTask)
		r.Get("/employees", d.UI.Employees)
		r.Get("/calendar", d.UI.Calendar)
		r.Get("/settings", d.UI.Settings)

		r.Post("/tasks", d.UI.CreateTask)
		r.Post("/tasks/{id}/status", d.UI.UpdateTaskStatus)
		r.Post("/tasks/{id}/comments", d.UI.AddComment)
		r.Post("/tasks/{id}/attachments", d.UI.AddAttachment)
		r.Delete("/tasks/{id}", d.UI.DeleteTask)
		r.Post("/tasks/{id}/delete", d.UI.DeleteTask) // HTML form fallback

		r.Post("/employees/{id}/messages", d.UI.SendMessage)

		r.Post("/calendar/events", d.UI.CreateEvent)
		r.Delete("/calendar/events/{id}", d.UI.DeleteEvent)
		r.Post("/calendar/events/{id}/delete", d.UI.DeleteEvent) // HTML form fallback

		r.Post("/settings", d.UI.UpdateSettings)
		r.Post("/settings/profile", d.UI.UpdateProfile)
		r.Post("/settings/password", d.UI.ChangePassword)
		r.Post("/settings/photo", d.UI.UploadPhoto)

		r.Post("/logout", d.UI.Logout)
	})

	return r
}

// csrfUnlessBearer applies the CSRF check to API calls that ride on the
// browser session cookie. Bearer-token clients are exempt.
func csrfUnlessBearer(cfg *config.Config) func(http.Handler) http.Handler {
	check := csrf.Middleware(cfg)
	return func(next http.Handler) http.Handler {
		checked := check(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			checked.ServeHTTP(w, r)
		})
	}
}

// limitUploads caps multipart bodies before the CSRF check reads the form.
// Bodies that announce a larger size are refused outright.
func limitUploads(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				if r.ContentLength > max {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// overrideMethod lets HTML forms issue PUT and DELETE through a _method
// field. Only url-encoded bodies are inspected so multipart uploads are not
// parsed before the handler applies its size limit.
func overrideMethod(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		if r.Method == http.MethodPost {
			if isURLEncoded(r) {
				if m := strings.TrimSpace(r.PostFormValue("_method")); m != "" {
					method = m
				}
			}
			if m := strings.TrimSpace(r.URL.Query().Get("_method")); m != "" && method == http.MethodPost {
				method = m
			}
		}
		switch strings.ToUpper(method) {
		case http.MethodPut, http.MethodDelete:
			r.Method = strings.ToUpper(method)
		}
		next.ServeHTTP(w, r)
	})
}

func isURLEncoded(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.EqualFold(strings.TrimSpace(ct), "application/x-www-form-urlencoded")
}

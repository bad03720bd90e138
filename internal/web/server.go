// Package web serves the browser UI. Every browser gets its own client core
// (adapter, session and view controllers) keyed by a cookie.
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/fintrack/internal/ledger"
	"github.com/mmynk/fintrack/internal/metrics"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/notify"
	"github.com/mmynk/fintrack/internal/view"
)

// CookieName identifies the browser's client core.
const CookieName = "fintrack_client"

//go:embed templates/*.html
var templateFS embed.FS

type contextKey string

const clientKey contextKey = "client"

// Server handles the web routes.
type Server struct {
	clients    *Registry
	metrics    *metrics.Metrics
	logger     *slog.Logger
	cookieTTL  time.Duration
	signInPage *template.Template
	shellPage  *template.Template
}

// NewServer creates the web server on top of clients.
func NewServer(clients *Registry, cookieTTL time.Duration, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		clients:    clients,
		metrics:    m,
		logger:     logger,
		cookieTTL:  cookieTTL,
		signInPage: template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/signin.html")),
		shellPage:  template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/dashboard.html")),
	}
}

// Router returns the HTTP handler for every web route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Get("/signin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, view.RouteSignIn, http.StatusMovedPermanently)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withClient)

		r.Get("/", s.handleSignInPage)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/signout", s.handleSignOut)

		r.Group(func(r chi.Router) {
			r.Use(requireSignedIn)

			r.Get("/dashboard", s.handleDashboard)
			r.Post("/dashboard/transactions", s.handleAddTransaction)
			r.Post("/dashboard/transactions/{id}/delete", s.handleDeleteTransaction)
			r.Post("/dashboard/nav/{view}", s.handleNavigate)
			r.Get("/api/dashboard", s.handleDashboardJSON)
		})
	})

	return r
}

// logRequests logs every request once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", chimiddleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// withClient attaches the browser's client core, creating one if needed.
func (s *Server) withClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var client *Client
		if cookie, err := r.Cookie(CookieName); err == nil {
			client, _ = s.clients.Lookup(cookie.Value)
		}
		if client == nil {
			client = s.clients.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    client.ID,
				Path:     "/",
				MaxAge:   int(s.cookieTTL.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), clientKey, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClient extracts the client core from the request context.
func GetClient(ctx context.Context) *Client {
	c, _ := ctx.Value(clientKey).(*Client)
	return c
}

// requireSignedIn redirects to the sign-in page unless the session is signed in.
func requireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := GetClient(r.Context())
		if client == nil || !client.Session.Snapshot().SignedIn() {
			if r.URL.Path == "/api/dashboard" {
				WriteError(w, http.StatusUnauthorized, "not signed in")
				return
			}
			http.Redirect(w, r, view.RouteSignIn, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type signInData struct {
	Register bool
	Notices  []notify.Message
}

type shellData struct {
	View    view.View
	Notices []notify.Message
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	if client.Session.Snapshot().SignedIn() {
		http.Redirect(w, r, view.RouteDashboard, http.StatusSeeOther)
		return
	}
	s.render(w, s.signInPage, signInData{
		Register: r.URL.Query().Get("mode") == "register",
		Notices:  client.Notices.Drain(),
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	client := GetClient(r.Context())
	if err := client.Session.SignIn(r.Context(), r.FormValue("email"), r.FormValue("password")); err != nil {
		http.Redirect(w, r, view.RouteSignIn, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, view.RouteDashboard, http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	client := GetClient(r.Context())
	err := client.Session.Register(r.Context(), r.FormValue("name"), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		http.Redirect(w, r, view.RouteSignIn+"?mode=register", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, view.RouteDashboard, http.StatusSeeOther)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	if err := client.View.Navigate(r.Context(), view.NavSignOut); err != nil {
		s.logger.Warn("Sign out failed", "client_id", client.ID, "error", err)
	}
	http.Redirect(w, r, view.RouteSignIn, http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	if !s.applyQuery(w, r, client) {
		return
	}
	v := client.View.Current()
	if !v.SignedIn() {
		http.Redirect(w, r, view.RouteSignIn, http.StatusSeeOther)
		return
	}
	s.render(w, s.shellPage, shellData{View: v, Notices: client.Notices.Drain()})
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	if !s.applyQuery(w, r, client) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"view":          client.View.Current(),
		"notifications": client.Notices.Drain(),
	})
}

// applyQuery handles ?view= and the transactions filter parameters.
func (s *Server) applyQuery(w http.ResponseWriter, r *http.Request, client *Client) bool {
	q := r.URL.Query()
	if name := q.Get("view"); name != "" {
		nav, ok := view.ParseNav(name)
		if !ok || nav == view.NavSignOut {
			http.Error(w, "unknown view", http.StatusBadRequest)
			return false
		}
		if err := client.View.Navigate(r.Context(), nav); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return false
		}
	}
	if q.Has("q") || q.Has("kind") || q.Has("category") {
		client.View.SetFilter(view.Filter{
			Query:    q.Get("q"),
			Kind:     models.Kind(q.Get("kind")),
			Category: q.Get("category"),
		})
	}
	return true
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	client := GetClient(r.Context())
	if store, ok := client.View.Transactions(); ok {
		// Failures are reported through the client's notices.
		_, _ = store.Add(r.Context(), ledger.Input{
			Amount:      r.FormValue("amount"),
			Kind:        models.Kind(r.FormValue("type")),
			Category:    r.FormValue("category"),
			Date:        r.FormValue("date"),
			Description: r.FormValue("description"),
		})
	}
	s.backToShell(w, r, client)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	if store, ok := client.View.Transactions(); ok {
		_ = store.Remove(r.Context(), chi.URLParam(r, "id"))
	}
	s.backToShell(w, r, client)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	client := GetClient(r.Context())
	nav, ok := view.ParseNav(chi.URLParam(r, "view"))
	if !ok {
		http.Error(w, "unknown view", http.StatusBadRequest)
		return
	}
	if err := client.View.Navigate(r.Context(), nav); err != nil {
		s.logger.Warn("Navigation failed", "client_id", client.ID, "nav", nav, "error", err)
	}
	s.backToShell(w, r, client)
}

func (s *Server) backToShell(w http.ResponseWriter, r *http.Request, client *Client) {
	v := client.View.Current()
	if !v.SignedIn() {
		http.Redirect(w, r, view.RouteSignIn, http.StatusSeeOther)
		return
	}
	target := view.RouteDashboard + "?" + url.Values{"view": {string(v.Nav)}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Failed to render page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

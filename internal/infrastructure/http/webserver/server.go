// Package webserver serves the MacroMojo web frontend and its JSON API
package webserver

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	aiapp "github.com/macromojo/macromojo/internal/application/ai"
	"github.com/macromojo/macromojo/internal/application/journal"
	"github.com/macromojo/macromojo/internal/application/user"
	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/hotreload"
	"github.com/macromojo/macromojo/internal/infrastructure/http/middleware"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// Messages shown after actions
const (
	msgLoggedIn       = "Log in successful!"
	msgBadLogin       = "Invalid credentials. Try again!"
	msgLoggedOut      = "You have been logged out."
	msgLoginRequired  = "You must be logged in to complete the action."
	msgSignedUp       = "Your account was created. Welcome to MacroMojo!"
	msgEntryAdded     = "New data entry added!"
	msgEntryUpdated   = "The entry was updated!"
	msgEntryDeleted   = "The entry was deleted!"
	msgTargetsUpdated = "Targets were updated!"
	msgMealAdded      = "New meal option was added!"
	msgMealUpdated    = "The meal was updated!"
	msgMealDeleted    = "The meal was deleted!"
	msgTooManyLogins  = "Too many login attempts. Wait a minute and try again."
	msgNoPage         = "The page does not exist."
	msgServerError    = "Something went wrong. Try again later."
	msgAssistantDown  = "The assistant is unavailable right now. Try again later."
	msgNewChat        = "Started a new conversation."
)

// WebServer is the web frontend HTTP server
type WebServer struct {
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
	router     *chi.Mux
	users      *user.Service
	journal    *journal.Service
	assistant  *aiapp.Assistant
	sessions   *SessionStore
	renderer   *Renderer
	watcher    *hotreload.Watcher
	livereload *hotreload.LiveReload
	limiter    *loginLimiter
	metrics    *monitoring.MetricsCollector
	csrfSecret []byte
}

// NewWebServer creates the web server. assistant and metrics may be nil.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	users *user.Service,
	journalService *journal.Service,
	assistant *aiapp.Assistant,
	sessions *SessionStore,
	metrics *monitoring.MetricsCollector,
) (*WebServer, error) {
	log = log.Named("webserver")

	renderer, err := NewRenderer(cfg.Server.TemplateDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	secret := []byte(cfg.Auth.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		log.Warn("auth.session_secret is not set; forms will not survive a restart")
	}

	s := &WebServer{
		config:     cfg,
		logger:     log,
		users:      users,
		journal:    journalService,
		assistant:  assistant,
		sessions:   sessions,
		renderer:   renderer,
		limiter:    newLoginLimiter(cfg.Auth.LoginRatePerMin, cfg.Auth.LoginBurst),
		metrics:    metrics,
		csrfSecret: secret,
	}

	if cfg.Server.TemplateDir != "" {
		s.livereload = hotreload.NewLiveReload(log)
		reload := func() error {
			if err := renderer.Reload(); err != nil {
				return err
			}
			s.livereload.Broadcast()
			return nil
		}
		s.watcher, err = hotreload.NewWatcher(cfg.Server.TemplateDir, []string{".html"}, hotreload.DefaultDebounce, reload, log)
		if err != nil {
			return nil, err
		}
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      otelhttp.NewHandler(s.router, "macromojo-web"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// Handler returns the root handler
func (s *WebServer) Handler() http.Handler {
	return s.router
}

func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security(s.config.Auth.SecureCookies))
	r.Use(middleware.Compress(5))
	r.Use(s.metrics.HTTPMiddleware)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if s.livereload != nil {
		r.Get("/livereload", s.livereload.ServeHTTP)
	}

	r.Route("/api/v1", s.apiRoutes)

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)
		r.Use(s.csrfMiddleware)

		r.Get("/", s.handleIndex)
		r.Get("/login", s.handleLoginPage)
		r.With(s.loginRateLimit).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/signup", s.handleSignupPage)
		r.Post("/signup", s.handleSignup)

		r.Route("/{username}", func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Use(s.requireOwner)

			r.Get("/", s.handleOverview)

			r.Get("/targets", s.handleTargets)
			r.Get("/targets/edit", s.handleEditTargetsPage)
			r.Post("/targets/edit", s.handleUpdateTargets)

			r.Get("/meals", s.handleMeals)
			r.Get("/meals/new", s.handleNewMealPage)
			r.Post("/meals/new", s.handleAddMeal)
			r.Get("/meals/{mealID}/edit", s.handleEditMealPage)
			r.Post("/meals/{mealID}/edit", s.handleUpdateMeal)
			r.Post("/meals/{mealID}/delete", s.handleDeleteMeal)

			r.Get("/assistant", s.handleAssistant)
			r.Post("/assistant", s.handleAsk)
			r.Post("/assistant/reset", s.handleResetAssistant)

			r.Route("/{date}", func(r chi.Router) {
				r.Use(s.requireValidDate)

				r.Get("/", s.handleDay)
				r.Get("/add", s.handleNewEntryPage)
				r.Post("/add", s.handleAddEntry)
				r.Get("/{entryID}/edit", s.handleEditEntryPage)
				r.Post("/{entryID}/edit", s.handleUpdateEntry)
				r.Post("/{entryID}/delete", s.handleDeleteEntry)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, msgNoPage)
	})

	return r
}

// Start serves until Shutdown is called
func (s *WebServer) Start() error {
	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and the template watcher
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web server")
	if s.watcher != nil {
		s.watcher.Close()
		s.livereload.Close()
	}
	return s.server.Shutdown(ctx)
}

// Middleware

func (s *WebServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Load(r)
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func (s *WebServer) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if !sess.LoggedIn() {
			sess.AddFlash(FlashError, msgLoginRequired)
			s.redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireOwner hides other users' pages behind a 404
func (s *WebServer) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "username") != sessionFrom(r).Username {
			s.renderError(w, r, http.StatusNotFound, msgNoPage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *WebServer) requireValidDate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !nutrition.IsDateValid(chi.URLParam(r, "date")) {
			s.renderError(w, r, http.StatusNotFound, msgNoPage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *WebServer) loginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			s.metrics.Login("throttled")
			s.logger.Warn("Login rate limit exceeded", zap.String("ip", clientIP(r)))
			w.Header().Set("Retry-After", "60")
			sess := sessionFrom(r)
			sess.AddFlash(FlashError, msgTooManyLogins)
			s.render(w, r, http.StatusTooManyRequests, "login", map[string]interface{}{
				"Title":    "Log in",
				"Username": r.PostFormValue("username"),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper methods

// render executes page with the common layout data and saves the session
func (s *WebServer) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	sess := sessionFrom(r)
	if data["Title"] == nil {
		data["Title"] = "MacroMojo"
	}
	data["User"] = sess.Username
	data["CSRFToken"] = csrfToken(s.csrfSecret, sess.ID)
	data["Flashes"] = sess.PopFlashes()
	data["LiveReload"] = s.livereload != nil

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, page, data); err != nil {
		s.logger.Error("Failed to execute template", zap.String("template", page), zap.Error(err))
		http.Error(w, msgServerError, http.StatusInternalServerError)
		return
	}

	s.saveSession(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *WebServer) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", map[string]interface{}{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

// redirect saves the session and sends a 303
func (s *WebServer) redirect(w http.ResponseWriter, r *http.Request, url string) {
	s.saveSession(w, r)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (s *WebServer) saveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := r.Context().Value(sessionKey{}).(*Session)
	if !ok {
		return
	}
	if err := s.sessions.Save(r.Context(), w, sess); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
	}
}

// handleError renders the page matching err
func (s *WebServer) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	var appErr *apperrors.AppError
	switch {
	case status == http.StatusNotFound:
		s.renderError(w, r, status, msgNoPage)
	case status < 500 && errors.As(err, &appErr):
		s.renderError(w, r, status, appErr.Message)
	default:
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, msgServerError)
	}
}

// formMessage returns the user-facing message of a validation failure
func formMessage(err error) (string, bool) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.CodeValidationFailed {
		return appErr.Message, true
	}
	return "", false
}

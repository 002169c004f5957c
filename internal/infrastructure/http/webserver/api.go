package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

type apiUserKey struct{}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type askRequest struct {
	Message string `json:"message"`
}

func (s *WebServer) apiRoutes(r chi.Router) {
	r.With(s.apiRateLimit).Post("/token", s.handleAPIToken)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/{username}", func(r chi.Router) {
			r.Use(s.requireTokenOwner)

			r.Get("/days/{date}", s.handleAPIDay)
			r.Post("/assistant", s.handleAPIAsk)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeAPIError(w, r, apperrors.NewNotFoundError("resource"))
	})
}

// handleAPIToken handles POST /api/v1/token
func (s *WebServer) handleAPIToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAPIError(w, r, apperrors.NewBadRequestError("Invalid request body"))
		return
	}

	token, err := s.users.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, token)
}

// handleAPIDay handles GET /api/v1/{username}/days/{date}
func (s *WebServer) handleAPIDay(w http.ResponseWriter, r *http.Request) {
	summary, err := s.journal.DaySummary(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "date"))
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleAPIAsk handles POST /api/v1/{username}/assistant
func (s *WebServer) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		s.writeAPIError(w, r, apperrors.NewNotFoundError("assistant"))
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAPIError(w, r, apperrors.NewBadRequestError("Invalid request body"))
		return
	}

	reply, err := s.assistant.Ask(r.Context(), "api:"+chi.URLParam(r, "username"), req.Message)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *WebServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeAPIError(w, r, apperrors.NewUnauthorizedError("Missing bearer token"))
			return
		}

		username, err := s.users.Authenticate(token)
		if err != nil {
			s.writeAPIError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiUserKey{}, username)))
	})
}

func (s *WebServer) requireTokenOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _ := r.Context().Value(apiUserKey{}).(string)
		if username != chi.URLParam(r, "username") {
			s.writeAPIError(w, r, apperrors.NewForbiddenError("Token does not grant access to this user"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *WebServer) apiRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			s.metrics.Login("throttled")
			w.Header().Set("Retry-After", "60")
			s.writeAPIError(w, r, apperrors.NewTooManyRequestsError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (s *WebServer) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError(msgServerError)
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		s.logger.Error("API request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, appErr.StatusCode(), apperrors.ToErrorResponse(appErr, chimw.GetReqID(r.Context())))
}

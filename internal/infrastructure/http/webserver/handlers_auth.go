package webserver

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/application/user"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFrom(r); sess.LoggedIn() {
		s.redirect(w, r, userPath(sess.Username))
		return
	}
	s.render(w, r, http.StatusOK, "index", map[string]interface{}{
		"Title": "Find your mojo",
	})
}

func (s *WebServer) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", map[string]interface{}{
		"Title": "Log in",
	})
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	sess := sessionFrom(r)

	err := s.users.Login(r.Context(), username, password)
	if apperrors.Is(err, apperrors.CodeInvalidCredentials) {
		sess.AddFlash(FlashError, msgBadLogin)
		s.render(w, r, http.StatusUnprocessableEntity, "login", map[string]interface{}{
			"Title":    "Log in",
			"Username": username,
		})
		return
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.sessions.Renew(r.Context(), sess)
	sess.Username = username
	sess.ConversationID = ""
	sess.AddFlash(FlashSuccess, msgLoggedIn)
	s.redirect(w, r, userPath(username))
}

func (s *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if s.assistant != nil && sess.ConversationID != "" {
		if err := s.assistant.Reset(r.Context(), sess.ConversationID); err != nil {
			s.logger.Warn("Failed to drop conversation", zap.Error(err))
		}
	}

	fresh := s.sessions.Destroy(r.Context(), sess)
	fresh.AddFlash(FlashSuccess, msgLoggedOut)
	r = r.WithContext(withSession(r.Context(), fresh))
	s.redirect(w, r, "/")
}

func (s *WebServer) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", map[string]interface{}{
		"Title": "Sign up",
	})
}

func (s *WebServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	cmd := user.SignupCommand{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm"),
	}
	sess := sessionFrom(r)

	if _, err := s.users.Register(r.Context(), cmd); err != nil {
		msg, ok := formMessage(err)
		if !ok {
			s.handleError(w, r, err)
			return
		}
		sess.AddFlash(FlashError, msg)
		s.render(w, r, http.StatusUnprocessableEntity, "signup", map[string]interface{}{
			"Title":    "Sign up",
			"Username": cmd.Username,
		})
		return
	}

	s.sessions.Renew(r.Context(), sess)
	sess.Username = cmd.Username
	sess.AddFlash(FlashSuccess, msgSignedUp)
	s.redirect(w, r, userPath(cmd.Username))
}

func userPath(username string, parts ...string) string {
	p := "/" + url.PathEscape(username)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

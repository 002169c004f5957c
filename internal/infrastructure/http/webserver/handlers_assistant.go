package webserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

func (s *WebServer) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		s.renderError(w, r, http.StatusNotFound, msgNoPage)
		return
	}

	sess := sessionFrom(r)
	history, err := s.assistant.History(r.Context(), sess.Conversation())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "assistant", map[string]interface{}{
		"Title":   "Assistant",
		"Welcome": s.assistant.Welcome(),
		"History": history,
		"Action":  userPath(chi.URLParam(r, "username"), "assistant"),
	})
}

func (s *WebServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		s.renderError(w, r, http.StatusNotFound, msgNoPage)
		return
	}

	sess := sessionFrom(r)
	back := userPath(chi.URLParam(r, "username"), "assistant")

	_, err := s.assistant.Ask(r.Context(), sess.Conversation(), r.PostFormValue("message"))
	if msg, ok := formMessage(err); ok {
		sess.AddFlash(FlashError, msg)
	} else if apperrors.Is(err, apperrors.CodeExternalServiceError) {
		sess.AddFlash(FlashError, msgAssistantDown)
	} else if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.redirect(w, r, back)
}

func (s *WebServer) handleResetAssistant(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		s.renderError(w, r, http.StatusNotFound, msgNoPage)
		return
	}

	sess := sessionFrom(r)
	if sess.ConversationID != "" {
		if err := s.assistant.Reset(r.Context(), sess.ConversationID); err != nil {
			s.logger.Warn("Failed to drop conversation", zap.Error(err))
		}
	}
	sess.ResetConversation()
	sess.AddFlash(FlashSuccess, msgNewChat)
	s.redirect(w, r, userPath(chi.URLParam(r, "username"), "assistant"))
}

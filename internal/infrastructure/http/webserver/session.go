package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/ports/outbound"
)

const (
	sessionCookie    = "macromojo_session"
	sessionKeyPrefix = "session:"
)

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the per-browser state kept in the cache
type Session struct {
	ID             string    `json:"id"`
	Username       string    `json:"username,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Flashes        []Flash   `json:"flashes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	stored bool
	dirty  bool
}

// LoggedIn reports whether a user is attached to the session
func (s *Session) LoggedIn() bool {
	return s.Username != ""
}

// AddFlash queues a message for the next page
func (s *Session) AddFlash(kind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
	s.dirty = true
}

// PopFlashes returns and clears the queued messages
func (s *Session) PopFlashes() []Flash {
	if len(s.Flashes) == 0 {
		return nil
	}
	flashes := s.Flashes
	s.Flashes = nil
	s.dirty = true
	return flashes
}

// Conversation returns the assistant conversation id, creating one if needed
func (s *Session) Conversation() string {
	if s.ConversationID == "" {
		s.ConversationID = uuid.NewString()
		s.dirty = true
	}
	return s.ConversationID
}

// ResetConversation starts a new assistant conversation
func (s *Session) ResetConversation() {
	s.ConversationID = uuid.NewString()
	s.dirty = true
}

// SessionStore keeps sessions in the cache, keyed by a random cookie value
type SessionStore struct {
	cache  outbound.CacheRepository
	ttl    time.Duration
	secure bool
	logger *zap.Logger
}

// NewSessionStore creates a session store
func NewSessionStore(cache outbound.CacheRepository, ttl time.Duration, secure bool, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{cache: cache, ttl: ttl, secure: secure, logger: logger.Named("sessions")}
}

// Load returns the request's session, or a new unsaved one
func (st *SessionStore) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return st.newSession()
	}

	data, err := st.cache.Get(r.Context(), sessionKeyPrefix+cookie.Value)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			st.logger.Warn("Failed to load session", zap.Error(err))
		}
		return st.newSession()
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.ID != cookie.Value {
		st.logger.Warn("Discarding malformed session")
		return st.newSession()
	}
	sess.stored = true
	return &sess
}

func (st *SessionStore) newSession() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
}

// Save writes the session when it is new or changed and refreshes the cookie
func (st *SessionStore) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess.stored && !sess.dirty {
		return nil
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := st.cache.Set(ctx, sessionKeyPrefix+sess.ID, data, st.ttl); err != nil {
		return err
	}
	sess.stored = true
	sess.dirty = false

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(st.ttl.Seconds()),
	})
	return nil
}

// Renew moves the session to a fresh id, keeping its data. Call it when the
// user logs in.
func (st *SessionStore) Renew(ctx context.Context, sess *Session) {
	if sess.stored {
		if err := st.cache.Delete(ctx, sessionKeyPrefix+sess.ID); err != nil {
			st.logger.Warn("Failed to delete old session", zap.Error(err))
		}
	}
	sess.ID = uuid.NewString()
	sess.stored = false
	sess.dirty = true
}

// Destroy deletes the session and returns an empty replacement
func (st *SessionStore) Destroy(ctx context.Context, sess *Session) *Session {
	if sess.stored {
		if err := st.cache.Delete(ctx, sessionKeyPrefix+sess.ID); err != nil {
			st.logger.Warn("Failed to delete session", zap.Error(err))
		}
	}
	return st.newSession()
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFrom returns the session attached by sessionMiddleware
func sessionFrom(r *http.Request) *Session {
	if sess, ok := r.Context().Value(sessionKey{}).(*Session); ok {
		return sess
	}
	return &Session{}
}

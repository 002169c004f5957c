package webserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/persistence/memory"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	cache := memory.NewCacheRepository(nil)
	t.Cleanup(func() { cache.Close() })
	return NewSessionStore(cache, time.Hour, true, zap.NewNop())
}

func requestWithCookie(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestSessionStore_SaveAndLoad_ShouldRoundTrip(t *testing.T) {
	// Arrange
	store := newTestSessionStore(t)
	sess := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	sess.Username = "alice"
	sess.AddFlash(FlashSuccess, "hello")
	w := httptest.NewRecorder()

	// Act
	require.NoError(t, store.Save(context.Background(), w, sess))
	loaded := store.Load(requestWithCookie(w.Result().Cookies()))

	// Assert
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "alice", loaded.Username)
	assert.Equal(t, []Flash{{Kind: FlashSuccess, Message: "hello"}}, loaded.Flashes)
	assert.True(t, loaded.stored)

	cookie := w.Result().Cookies()[0]
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestSessionStore_UnchangedSession_ShouldNotRewriteCookie(t *testing.T) {
	// Arrange
	store := newTestSessionStore(t)
	sess := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, store.Save(context.Background(), httptest.NewRecorder(), sess))
	w := httptest.NewRecorder()

	// Act
	require.NoError(t, store.Save(context.Background(), w, sess))

	// Assert
	assert.Empty(t, w.Result().Cookies())
}

func TestSessionStore_UnknownCookie_ShouldStartFreshSession(t *testing.T) {
	// Arrange
	store := newTestSessionStore(t)
	r := requestWithCookie([]*http.Cookie{{Name: sessionCookie, Value: "forged"}})

	// Act
	sess := store.Load(r)

	// Assert
	assert.NotEqual(t, "forged", sess.ID)
	assert.False(t, sess.stored)
	assert.False(t, sess.LoggedIn())
}

func TestSessionStore_Renew_ShouldInvalidateOldID(t *testing.T) {
	// Arrange
	store := newTestSessionStore(t)
	ctx := context.Background()
	sess := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	first := httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, first, sess))
	oldID := sess.ID

	// Act
	store.Renew(ctx, sess)
	second := httptest.NewRecorder()
	require.NoError(t, store.Save(ctx, second, sess))

	// Assert
	assert.NotEqual(t, oldID, sess.ID)
	assert.False(t, store.Load(requestWithCookie(first.Result().Cookies())).stored)
	assert.Equal(t, sess.ID, store.Load(requestWithCookie(second.Result().Cookies())).ID)
}

func TestSession_Conversation_ShouldBeStableUntilReset(t *testing.T) {
	// Arrange
	sess := &Session{}

	// Act
	first := sess.Conversation()
	second := sess.Conversation()
	sess.ResetConversation()

	// Assert
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, sess.ConversationID)
}

func TestCSRFToken_ShouldBindToSession(t *testing.T) {
	secret := []byte("secret")
	token := csrfToken(secret, "session-a")

	assert.True(t, validCSRFToken(secret, "session-a", token))
	assert.False(t, validCSRFToken(secret, "session-b", token))
	assert.False(t, validCSRFToken([]byte("other"), "session-a", token))
	assert.False(t, validCSRFToken(secret, "session-a", ""))
}

func TestLoginLimiter_ShouldThrottlePerKeyAndRefill(t *testing.T) {
	// Arrange
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newLoginLimiter(6, 2)
	l.now = func() time.Time { return now }

	// Act & Assert
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "other clients have their own budget")

	now = now.Add(11 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refills roughly every ten seconds")
}

func TestLoginLimiter_ShouldForgetIdleClients(t *testing.T) {
	// Arrange
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newLoginLimiter(6, 1)
	l.now = func() time.Time { return now }
	l.Allow("10.0.0.1")

	// Act
	now = now.Add(11 * time.Minute)
	l.Allow("10.0.0.2")

	// Assert
	assert.NotContains(t, l.visitors, "10.0.0.1")
	assert.Contains(t, l.visitors, "10.0.0.2")
}

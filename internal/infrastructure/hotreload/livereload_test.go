package hotreload

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialLiveReload(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestLiveReload_Broadcast_ShouldReachEveryPage(t *testing.T) {
	// Arrange
	lr := NewLiveReload(zap.NewNop())
	srv := httptest.NewServer(lr)
	defer srv.Close()
	defer lr.Close()

	first := dialLiveReload(t, srv)
	defer first.Close()
	second := dialLiveReload(t, srv)
	defer second.Close()
	require.Eventually(t, func() bool { return lr.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	// Act
	lr.Broadcast()

	// Assert
	for _, conn := range []*websocket.Conn{first, second} {
		var msg ReloadMessage
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "reload", msg.Command)
	}
}

func TestLiveReload_ClosedPage_ShouldBeForgotten(t *testing.T) {
	lr := NewLiveReload(zap.NewNop())
	srv := httptest.NewServer(lr)
	defer srv.Close()
	defer lr.Close()

	conn := dialLiveReload(t, srv)
	require.Eventually(t, func() bool { return lr.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool { return lr.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestLiveReload_Close_ShouldDisconnectPages(t *testing.T) {
	lr := NewLiveReload(zap.NewNop())
	srv := httptest.NewServer(lr)
	defer srv.Close()

	conn := dialLiveReload(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return lr.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	lr.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, lr.Clients())
}

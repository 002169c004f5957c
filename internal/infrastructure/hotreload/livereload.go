package hotreload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadMessage is sent to connected browsers
type ReloadMessage struct {
	Command   string `json:"command"`
	Timestamp int64  `json:"timestamp"`
}

const writeWait = time.Second

// LiveReload keeps a websocket open to every page rendered in development
// and tells those pages to reload after the templates change
type LiveReload struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewLiveReload creates a live reload hub
func NewLiveReload(logger *zap.Logger) *LiveReload {
	return &LiveReload{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger.Named("livereload"),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and holds the connection until the browser
// goes away
func (l *LiveReload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return
	}
	l.clients[conn] = struct{}{}
	l.mu.Unlock()

	// Browsers never send anything; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	l.mu.Lock()
	delete(l.clients, conn)
	l.mu.Unlock()
	conn.Close()
}

// Broadcast tells every connected page to reload
func (l *LiveReload) Broadcast() {
	msg := ReloadMessage{Command: "reload", Timestamp: time.Now().Unix()}

	l.mu.Lock()
	defer l.mu.Unlock()
	for conn := range l.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			l.logger.Debug("Dropping live reload client", zap.Error(err))
			delete(l.clients, conn)
			conn.Close()
		}
	}
	l.logger.Debug("Sent reload", zap.Int("clients", len(l.clients)))
}

// Clients returns the number of connected pages
func (l *LiveReload) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Close disconnects every page
func (l *LiveReload) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for conn := range l.clients {
		conn.Close()
		delete(l.clients, conn)
	}
}

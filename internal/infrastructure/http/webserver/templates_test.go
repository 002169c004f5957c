package webserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/memory"
)

func TestRenderer_Embedded_ShouldParseEveryPage(t *testing.T) {
	r, err := NewRenderer("", zap.NewNop())
	require.NoError(t, err)

	for _, page := range []string{
		"index", "login", "signup", "overview", "day", "entry_form",
		"targets", "targets_edit", "meals", "meal_form", "assistant", "error",
	} {
		assert.Contains(t, r.pages, page)
	}
	assert.NotContains(t, r.pages, "layout")
}

func TestRenderer_FromDir_ShouldKeepLastGoodSetOnError(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("layout.html", `{{define "layout"}}<main>{{template "content" .}}</main>{{end}}`)
	write("hello.html", `{{define "content"}}hi {{.Name}}{{end}}`)

	r, err := NewRenderer(dir, zap.NewNop())
	require.NoError(t, err)

	// Act
	write("hello.html", `{{define "content"}}{{.Name}{{end}}`)
	reloadErr := r.Reload()

	var buf bytes.Buffer
	renderErr := r.Render(&buf, "hello", map[string]interface{}{"Name": "alice"})

	// Assert
	assert.Error(t, reloadErr)
	require.NoError(t, renderErr)
	assert.Equal(t, "<main>hi alice</main>", buf.String())
}

func TestRenderer_UnknownPage_ShouldFail(t *testing.T) {
	r, err := NewRenderer("", zap.NewNop())
	require.NoError(t, err)

	err = r.Render(&bytes.Buffer{}, "missing", nil)

	assert.Error(t, err)
}

func TestWebServer_TemplateDir_ShouldServeLiveReload(t *testing.T) {
	// Arrange
	cache := memory.NewCacheRepository(nil)
	defer cache.Close()
	cfg := &config.Config{
		Server: config.ServerConfig{TemplateDir: "templates"},
		Auth:   config.AuthConfig{SessionSecret: "secret", SessionTTL: time.Hour, LoginRatePerMin: 10, LoginBurst: 5},
	}
	ws, err := NewWebServer(cfg, zap.NewNop(), nil, nil, nil, NewSessionStore(cache, time.Hour, false, zap.NewNop()), nil)
	require.NoError(t, err)
	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()
	defer ws.Shutdown(context.Background())

	// Act
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	conn, _, dialErr := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/livereload", nil)

	// Assert
	assert.Contains(t, string(body), `<script src="/static/livereload.js"></script>`)
	require.NoError(t, dialErr)
	conn.Close()
}

package middleware

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Compress compresses text responses, preferring brotli over gzip and
// deflate when the client accepts it
func Compress(level int) func(http.Handler) http.Handler {
	c := chimw.NewCompressor(level,
		"text/html", "text/css", "text/javascript", "application/javascript", "application/json")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c.Handler
}

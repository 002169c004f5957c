package webserver

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const layoutFile = "layout.html"

// pager is the data the "pager" partial renders
type pager struct {
	Base       string
	Number     int
	TotalPages int
}

func (p pager) HasPrev() bool { return p.Number > 1 }
func (p pager) HasNext() bool { return p.Number < p.TotalPages }
func (p pager) Prev() int     { return p.Number - 1 }
func (p pager) Next() int     { return p.Number + 1 }

var funcMap = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("Mon, Jan 2, 2006")
	},
	"formatTime": func(t time.Time) string {
		return t.Local().Format("3:04 PM")
	},
	"isoDate": func(t time.Time) string {
		return t.Format(nutrition.DateLayout)
	},
	"pager": func(base string, number, total int) pager {
		return pager{Base: base, Number: number, TotalPages: total}
	},
	"lines": func(s string) []string {
		return strings.Split(strings.TrimSpace(s), "\n")
	},
}

// Renderer holds one parsed template set per page, each combined with the
// shared layout
type Renderer struct {
	mu     sync.RWMutex
	pages  map[string]*template.Template
	source fs.FS
	logger *zap.Logger
}

// NewRenderer parses the embedded templates, or the ones in dir when it is set
func NewRenderer(dir string, logger *zap.Logger) (*Renderer, error) {
	var source fs.FS
	if dir != "" {
		source = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			return nil, err
		}
		source = sub
	}

	r := &Renderer{source: source, logger: logger.Named("templates")}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every page. On error the previous set stays active.
func (r *Renderer) Reload() error {
	names, err := fs.Glob(r.source, "*.html")
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == layoutFile {
			continue
		}
		t, err := template.New(layoutFile).Funcs(funcMap).ParseFS(r.source, layoutFile, name)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[strings.TrimSuffix(name, path.Ext(name))] = t
	}

	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()

	r.logger.Debug("Templates parsed", zap.Int("pages", len(pages)))
	return nil
}

// Render executes page inside the layout
func (r *Renderer) Render(w io.Writer, page string, data map[string]interface{}) error {
	r.mu.RLock()
	t, ok := r.pages[page]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

package handler

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/osteele/liquid"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer holds the parsed page templates, keyed by file name without
// extension.
type Renderer struct {
	templates map[string]*liquid.Template
}

func NewRenderer() (*Renderer, error) {
	engine := liquid.NewEngine()
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	r := &Renderer{templates: make(map[string]*liquid.Template, len(entries))}
	for _, entry := range entries {
		src, err := templateFS.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}
		tpl, perr := engine.ParseTemplate(src)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", entry.Name(), perr)
		}
		r.templates[strings.TrimSuffix(entry.Name(), ".html")] = tpl
	}
	return r, nil
}

// Render writes the named page. Rendering happens before the status is
// written so a template failure still yields a 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, bindings map[string]interface{}) {
	tpl, ok := r.templates[name]
	if !ok {
		util.Error("Unknown template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	out, err := tpl.Render(bindings)
	if err != nil {
		util.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = bytes.NewReader(out).WriteTo(w)
}

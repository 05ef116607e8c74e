// Package tmpl serves the embedded HTML pages. Pages are intentionally
// self-contained single files with inline styling.
package tmpl

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/indieinfra/tgfile/server/handler/common"
)

//go:embed pages/*.html
var pages embed.FS

var parsed = template.Must(template.ParseFS(pages, "pages/*.html"))

// Render writes the named page with the given data. A template failure is
// a programming error; it is logged and answered with a bare 500.
func Render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := parsed.ExecuteTemplate(w, name, data); err != nil {
		common.Logger(r).Errorf("render %s failed: %v", name, err)
		http.Error(w, "page rendering failed", http.StatusInternalServerError)
	}
}

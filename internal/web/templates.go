package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFiles embed.FS

// markdown renders reports. Raw HTML in the model's output is escaped.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// templateFuncs provides helper functions available in all templates.
var templateFuncs = template.FuncMap{
	"markdown":       renderMarkdown,
	"upper":          strings.ToUpper,
	"formatBytes":    formatBytes,
	"formatDuration": formatDuration,
	"formatTokens":   formatTokens,
	"exportPayload":  encodeExport,
}

// loadTemplates parses the layout and each page template. Each page
// template is a clone of the layout with the page-specific blocks
// overridden. Panics on syntax errors so that startup fails fast.
func loadTemplates() map[string]*template.Template {
	layout := template.Must(
		template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFiles,
			"templates/layout.html", "templates/partials.html"),
	)

	pages := []string{"index.html", "run.html"}
	result := make(map[string]*template.Template, len(pages))

	for _, page := range pages {
		t := template.Must(layout.Clone())
		template.Must(t.ParseFS(templateFiles, "templates/"+page))
		result[page] = t
	}

	return result
}

// render executes a named page template with the given status. If the
// request has the HX-Request header (htmx partial), only the partial
// block is rendered. Otherwise the full layout is rendered.
func (s *WebServer) render(w http.ResponseWriter, r *http.Request, status int, name, partial string, data any) {
	t, ok := s.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	block := "layout.html"
	if r.Header.Get("HX-Request") == "true" {
		block = partial
	}

	// Render into a buffer so a template error can still become a 500.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		s.logger.Error("template render failed", "template", name, "block", block, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// renderMarkdown converts a report to HTML. On failure the escaped source
// is shown inside a pre block.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

// formatBytes renders the size of s, e.g. "4.2 kB".
func formatBytes(s string) string {
	return humanize.Bytes(uint64(len(s)))
}

// formatDuration renders an elapsed run time, e.g. "42.3s" or "2m 5s".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// formatTokens renders a token count with thousands separators.
func formatTokens(n int) string {
	return humanize.Comma(int64(n))
}

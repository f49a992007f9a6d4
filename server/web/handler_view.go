package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/unblurai/unblur/pkg/navigator"
	"github.com/unblurai/unblur/pkg/recognizer"
	"github.com/unblurai/unblur/pkg/session"
	"github.com/unblurai/unblur/pkg/text"
)

type viewData struct {
	Title  string
	Route  navigator.Route
	Routes []navigator.Route

	Prompt        string
	DefaultPrompt string

	Result *session.RecognitionResult

	Image    template.URL
	Markdown template.HTML

	Loading   bool
	Streaming bool
	Logs      []string
}

// Refresh reports whether the page should reload itself to pick up
// progress of a running recognition.
func (d viewData) Refresh() bool {
	if d.Loading || d.Streaming {
		return true
	}

	return d.Result != nil && d.Result.IsProcessing != nil && *d.Result.IsProcessing
}

var templateFuncs = template.FuncMap{
	"percent": func(val float64) string {
		return fmt.Sprintf("%.0f%%", val*100)
	},

	"seconds": func(val *float64) string {
		if val == nil {
			return "-"
		}

		return fmt.Sprintf("%.2fs", *val)
	},
}

func parseTemplates() (map[navigator.View]*template.Template, error) {
	result := make(map[navigator.View]*template.Template)

	for _, view := range []navigator.View{navigator.ViewHome, navigator.ViewResult} {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+string(view)+".html")

		if err != nil {
			return nil, err
		}

		result[view] = t
	}

	return result, nil
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	route, ok := h.navigator.Resolve(r.URL.Path)

	if !ok {
		http.NotFound(w, r)
		return
	}

	t, ok := h.templates[route.View]

	if !ok {
		http.NotFound(w, r)
		return
	}

	state := h.state(w, r)
	snapshot := state.Snapshot()

	data := viewData{
		Title:  route.Title,
		Route:  route,
		Routes: h.navigator.Routes(),

		Prompt:        snapshot.Prompt,
		DefaultPrompt: recognizer.DefaultPrompt,

		Result: snapshot.RecognitionResult,

		Loading:   snapshot.IsLoading,
		Streaming: snapshot.IsStreaming,
		Logs:      snapshot.StreamingLogs,
	}

	if result := snapshot.RecognitionResult; result != nil {
		// data URIs are produced by handleRecognize only
		if strings.HasPrefix(result.OriginalImage, "data:image/") {
			data.Image = template.URL(result.OriginalImage)
		}

		if text.IsMarkdown(result.RecognizedText) {
			html, err := text.RenderMarkdown(result.RecognizedText)

			if err != nil {
				h.logger.ErrorContext(r.Context(), "markdown rendering failed", "error", err)
			} else {
				data.Markdown = template.HTML(html)
			}
		}
	}

	var buf bytes.Buffer

	if err := t.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "template rendering failed", "view", route.View, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

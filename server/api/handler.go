package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/unblurai/unblur/pkg/recognizer"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	recognizer *recognizer.Recognizer
}

func New(r *recognizer.Recognizer) (*Handler, error) {
	h := &Handler{
		recognizer: r,
	}

	return h, nil
}

func (h *Handler) AttachPublic(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) Attach(r chi.Router) {
	r.Post("/upload", h.handleUpload)
	r.Post("/upload-stream", h.handleUploadStream)

	r.Post("/refine", h.handleRefine)
	r.Post("/tune", h.handleTune)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJson(w, map[string]string{
		"message": "UnblurAI API is running",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format("2006-01-02T15:04:05.000000"),
		Message:   "UnblurAI API is running normally",
	})
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	text := http.StatusText(code)

	if err != nil {
		text = err.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(ErrorResponse{
		Detail: text,
	})
}

func writeEventData(w http.ResponseWriter, v any) error {
	rc := http.NewResponseController(w)

	var data bytes.Buffer

	enc := json.NewEncoder(&data)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return err
	}

	event := strings.TrimSpace(data.String())

	if _, err := fmt.Fprintf(w, "data: %s\n\n", event); err != nil {
		return err
	}

	return rc.Flush()
}

func seconds(d time.Duration) *float64 {
	val := math.Round(d.Seconds()*100) / 100
	return &val
}

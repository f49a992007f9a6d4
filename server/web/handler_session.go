package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJson(w, h.state(w, r).Snapshot())
}

// handleSessionEvents streams the session snapshot once and then after
// every change until the client goes away.
func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := state.Subscribe(r.Context())

	if err := writeEventData(w, state.Snapshot()); err != nil {
		return
	}

	for snapshot := range ch {
		if err := writeEventData(w, snapshot); err != nil {
			return
		}
	}
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeEventData(w http.ResponseWriter, v any) error {
	rc := http.NewResponseController(w)

	data, err := json.Marshal(v)

	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", string(data)); err != nil {
		return err
	}

	return rc.Flush()
}

package web

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/session"
	"github.com/unblurai/unblur/server/api"
)

func (h *Handler) handleRecognize(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)

	if state.IsLoading() {
		h.redirect(w, r, "result")
		return
	}

	file, err := api.ReadUpload(w, r, h.recognizer.MaxSize())

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// loading doubles as the per-session lock for running recognitions
	if !state.BeginLoading() {
		h.redirect(w, r, "result")
		return
	}

	prompt := r.FormValue("prompt")

	state.SetPrompt(prompt)
	state.ClearResult()

	state.SetRecognitionResult(session.RecognitionResult{
		OriginalImage: dataURI(file),
		IsProcessing:  session.Ptr(true),
	})

	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
		defer cancel()

		h.recognize(ctx, state, *file, prompt)
	}()

	h.redirect(w, r, "result")
}

// recognize applies every streamed event to the session in delivery order.
func (h *Handler) recognize(ctx context.Context, state *session.State, file provider.File, prompt string) {
	defer state.SetLoading(false)

	for event := range h.recognizer.Stream(ctx, file, prompt) {
		state.UpdateStreamingProgress(event)
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state(w, r).Reset()
	h.redirect(w, r, "home")
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.state(w, r).ClearResult()
	h.redirect(w, r, "result")
}

func (h *Handler) handleRefine(w http.ResponseWriter, r *http.Request) {
	state := h.state(w, r)

	instruction := r.FormValue("instruction")
	result := state.RecognitionResult()

	if state.IsLoading() || instruction == "" || result == nil || result.RecognizedText == "" {
		h.redirect(w, r, "result")
		return
	}

	refined, err := h.recognizer.Refine(r.Context(), result.RecognizedText, instruction)

	if err != nil {
		state.AddStreamingLog(session.ErrorPrefix + "微调失败: " + err.Error())
		h.redirect(w, r, "result")
		return
	}

	if !state.ReplaceRecognizedText(result.RecognizedText, refined) {
		h.logger.WarnContext(r.Context(), "session changed during refinement, refined text discarded")
		h.redirect(w, r, "result")
		return
	}

	state.AddStreamingLog("文字微调成功")

	h.redirect(w, r, "result")
}

// Wait blocks until all running recognitions have finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func dataURI(file *provider.File) string {
	contentType := file.ContentType

	if contentType == "" {
		contentType = http.DetectContentType(file.Content)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(file.Content)
}

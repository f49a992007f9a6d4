package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/unblurai/unblur/pkg/recognizer"
	"github.com/unblurai/unblur/pkg/session"
)

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	file, err := ReadUpload(w, r, h.recognizer.MaxSize())

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := recognizer.CheckContentType(file.ContentType); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.recognizer.CheckSize(int64(len(file.Content))); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	text, err := h.recognizer.Recognize(r.Context(), *file, valuePrompt(r))

	if err != nil {
		writeJson(w, UploadResponse{
			Success: false,
			Message: "识别失败: " + err.Error(),

			ProcessingTime: seconds(time.Since(started)),
		})

		return
	}

	writeJson(w, UploadResponse{
		Success: true,
		Message: "文字识别成功",

		RecognizedText: &text,
		ProcessingTime: seconds(time.Since(started)),
	})
}

func (h *Handler) handleUploadStream(w http.ResponseWriter, r *http.Request) {
	file, err := ReadUpload(w, r, h.recognizer.MaxSize())

	if err != nil && !errors.Is(err, recognizer.ErrImageTooLarge) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err != nil {
		writeEventData(w, session.StreamingProgress{Type: session.ProgressTypeStart, Message: "开始处理图片..."})
		writeEventData(w, session.StreamingProgress{Type: session.ProgressTypeError, Message: err.Error()})

		return
	}

	for event := range h.recognizer.Stream(r.Context(), *file, valuePrompt(r)) {
		if err := writeEventData(w, event); err != nil {
			return
		}
	}
}

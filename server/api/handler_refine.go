package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

func (h *Handler) handleRefine(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req RefineRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.OriginalText == "" || req.RefinementInstruction == "" {
		writeError(w, http.StatusBadRequest, errors.New("original_text and refinement_instruction are required"))
		return
	}

	text, err := h.recognizer.Refine(r.Context(), req.OriginalText, req.RefinementInstruction)

	if err != nil {
		writeJson(w, RefineResponse{
			Success: false,
			Message: "微调失败: " + err.Error(),

			ProcessingTime: seconds(time.Since(started)),
		})

		return
	}

	writeJson(w, RefineResponse{
		Success: true,
		Message: "文字微调成功",

		RefinedText:    &text,
		ProcessingTime: seconds(time.Since(started)),
	})
}

func (h *Handler) handleTune(w http.ResponseWriter, r *http.Request) {
	original := r.FormValue("text")
	instruction := r.FormValue("instruction")

	if original == "" || instruction == "" {
		writeError(w, http.StatusBadRequest, errors.New("text and instruction are required"))
		return
	}

	text, err := h.recognizer.Tune(r.Context(), original, instruction)

	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.New("文字微调失败: "+err.Error()))
		return
	}

	writeJson(w, TuneResponse{
		Success: true,

		TunedText:           text,
		OriginalInstruction: instruction,
	})
}

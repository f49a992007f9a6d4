package api

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	RecognizedText *string  `json:"recognized_text"`
	ProcessingTime *float64 `json:"processing_time"`
}

type RefineRequest struct {
	OriginalText          string `json:"original_text"`
	RefinementInstruction string `json:"refinement_instruction"`
}

type RefineResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	RefinedText    *string  `json:"refined_text"`
	ProcessingTime *float64 `json:"processing_time"`
}

type TuneResponse struct {
	Success bool `json:"success"`

	TunedText           string `json:"tuned_text"`
	OriginalInstruction string `json:"original_instruction"`
}

package session

// ProgressType tags a streaming progress event.
type ProgressType string

const (
	ProgressTypeStart    ProgressType = "start"
	ProgressTypeProgress ProgressType = "progress"
	ProgressTypeSuccess  ProgressType = "success"
	ProgressTypeError    ProgressType = "error"
)

// Placeholder policy applied when a backend omits fields.
const (
	DefaultStartMessage    = "开始识别..."
	DefaultProgressMessage = "处理中..."
	DefaultErrorMessage    = "识别失败"

	SuccessMessage = "识别完成！"
	ErrorPrefix    = "错误: "

	DefaultConfidence = 0.95
)

// RecognitionResult is the outcome of one recognition request.
type RecognitionResult struct {
	OriginalImage  string  `json:"original_image"`
	RecognizedText string  `json:"recognized_text"`
	Confidence     float64 `json:"confidence"`

	ProcessingTime *float64 `json:"processing_time,omitempty"`
	IsProcessing   *bool    `json:"isProcessing,omitempty"`
}

func (r *RecognitionResult) clone() *RecognitionResult {
	if r == nil {
		return nil
	}

	c := *r

	if r.ProcessingTime != nil {
		c.ProcessingTime = Ptr(*r.ProcessingTime)
	}

	if r.IsProcessing != nil {
		c.IsProcessing = Ptr(*r.IsProcessing)
	}

	return &c
}

// StreamingProgress is one event of a streaming recognition. Empty or zero
// payload fields count as absent.
type StreamingProgress struct {
	Type ProgressType `json:"type"`

	Message string `json:"message,omitempty"`

	RecognizedText string  `json:"recognized_text,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
}

// IsTerminal reports whether the event ends a streaming request.
func (p StreamingProgress) IsTerminal() bool {
	return p.Type == ProgressTypeSuccess || p.Type == ProgressTypeError
}

// Snapshot is a detached copy of a session's state.
type Snapshot struct {
	Prompt            string             `json:"prompt"`
	RecognitionResult *RecognitionResult `json:"recognitionResult"`
	IsLoading         bool               `json:"isLoading"`
	StreamingLogs     []string           `json:"streamingLogs"`
	IsStreaming       bool               `json:"isStreaming"`
}

func Ptr[T any](v T) *T {
	return &v
}

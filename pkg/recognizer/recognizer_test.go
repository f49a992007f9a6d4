package recognizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/session"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

type mockCompleter struct {
	response string
	err      error

	messages []provider.Message
	options  *provider.CompleteOptions
}

func (m *mockCompleter) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		m.messages = messages
		m.options = options

		if m.err != nil {
			yield(nil, m.err)
			return
		}

		yield(&provider.Completion{
			Message: &provider.Message{
				Role:    provider.MessageRoleAssistant,
				Content: []provider.Content{provider.TextContent(m.response)},
			},
		}, nil)
	}
}

func testImage(t *testing.T, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var buf bytes.Buffer

	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	case "bmp":
		require.NoError(t, bmp.Encode(&buf, img))
	default:
		t.Fatalf("unknown format %s", format)
	}

	return buf.Bytes()
}

func newTestRecognizer(t *testing.T, completer provider.Completer, options ...Option) *Recognizer {
	t.Helper()

	options = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, options...)

	r, err := New(completer, options...)
	require.NoError(t, err)

	return r
}

func TestValidateImage(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{})

	format, err := r.ValidateImage(testImage(t, "png"))
	require.NoError(t, err)
	require.Equal(t, "png", format)

	format, err = r.ValidateImage(testImage(t, "jpeg"))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)

	_, err = r.ValidateImage(testImage(t, "bmp"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = r.ValidateImage([]byte("not an image"))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestValidateImageSize(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{}, WithMaxSize(1024*1024))

	_, err := r.ValidateImage(make([]byte, 1024*1024+1))

	require.ErrorIs(t, err, ErrImageTooLarge)
	require.EqualError(t, err, "文件大小不能超过 1MB")
}

func TestSizeErrorMessage(t *testing.T) {
	tests := []struct {
		limit int64
		want  string
	}{
		{5 * 1024 * 1024, "文件大小不能超过 5MB"},
		{1536 * 1024, "文件大小不能超过 1.5MB"},
		{512 * 1024, "文件大小不能超过 512KB"},
		{1536, "文件大小不能超过 1.5KB"},
		{16, "文件大小不能超过 16B"},
	}

	for _, tt := range tests {
		err := &SizeError{Limit: tt.limit}
		require.EqualError(t, err, tt.want)
	}
}

func TestCheckContentType(t *testing.T) {
	require.NoError(t, CheckContentType("image/png"))
	require.NoError(t, CheckContentType("image/jpg"))
	require.NoError(t, CheckContentType("image/JPEG; charset=binary"))
	require.ErrorIs(t, CheckContentType("image/gif"), ErrUnsupportedFormat)
	require.ErrorIs(t, CheckContentType("application/pdf"), ErrNotImage)
	require.ErrorIs(t, CheckContentType(""), ErrNotImage)
}

func TestRecognize(t *testing.T) {
	completer := &mockCompleter{response: "<|begin_of_box|>  第一行 \n\n第二行<|end_of_box|>"}
	r := newTestRecognizer(t, completer)

	file := provider.File{Name: "a.jpg", Content: testImage(t, "png"), ContentType: "image/jpeg"}

	result, err := r.Recognize(context.Background(), file, "")

	require.NoError(t, err)
	require.Equal(t, "第一行\n第二行", result)

	require.Len(t, completer.messages, 1)

	content := completer.messages[0].Content
	require.Len(t, content, 2)
	require.Equal(t, "image/png", content[0].File.ContentType)
	require.Equal(t, DefaultPrompt, content[1].Text)
	require.True(t, completer.options.Thinking)
}

func TestRecognizeCustomPrompt(t *testing.T) {
	completer := &mockCompleter{response: "ok"}
	r := newTestRecognizer(t, completer, WithThinking(false))

	_, err := r.Recognize(context.Background(), provider.File{Content: testImage(t, "png")}, "只识别标题")

	require.NoError(t, err)
	require.Equal(t, "只识别标题", completer.messages[0].Content[1].Text)
	require.False(t, completer.options.Thinking)
}

func TestRecognizeEmptyResponse(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{response: ""})

	_, err := r.Recognize(context.Background(), provider.File{Content: testImage(t, "png")}, "")

	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRefineAndTune(t *testing.T) {
	completer := &mockCompleter{response: "refined\n\n"}
	r := newTestRecognizer(t, completer)

	result, err := r.Refine(context.Background(), "原文", "改成英文")
	require.NoError(t, err)
	require.Equal(t, "refined", result)

	prompt := completer.messages[0].Text()
	require.Contains(t, prompt, "原始文字内容：\n原文")
	require.Contains(t, prompt, "微调指令：\n改成英文")

	_, err = r.Tune(context.Background(), "原文", "更正式")
	require.NoError(t, err)
	require.Contains(t, completer.messages[0].Text(), "指令：更正式")
	require.Equal(t, 2000, *completer.options.MaxTokens)
	require.InDelta(t, 0.7, *completer.options.Temperature, 0.0001)
}

func fakeClock() func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	return func() time.Time {
		now = now.Add(1234 * time.Millisecond)
		return now
	}
}

func types(events []session.StreamingProgress) []session.ProgressType {
	var result []session.ProgressType

	for _, e := range events {
		result = append(result, e.Type)
	}

	return result
}

func TestStreamSuccess(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{response: "hello"}, withClock(fakeClock()))

	file := provider.File{Content: testImage(t, "png"), ContentType: "image/png"}

	events := slices.Collect(r.Stream(context.Background(), file, ""))

	require.Equal(t, []session.ProgressType{
		session.ProgressTypeStart,
		session.ProgressTypeProgress,
		session.ProgressTypeProgress,
		session.ProgressTypeProgress,
		session.ProgressTypeProgress,
		session.ProgressTypeProgress,
		session.ProgressTypeSuccess,
	}, types(events))

	require.Equal(t, "开始处理图片...", events[0].Message)
	require.Equal(t, "正在调用GLM-4.5V模型识别...", events[2].Message)

	last := events[len(events)-1]
	require.Equal(t, "hello", last.RecognizedText)
	require.Equal(t, 1.23, last.ProcessingTime)
}

func TestStreamRejectsContentType(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{response: "hello"})

	events := slices.Collect(r.Stream(context.Background(), provider.File{ContentType: "text/plain"}, ""))

	require.Equal(t, []session.ProgressType{session.ProgressTypeStart, session.ProgressTypeError}, types(events))
	require.Equal(t, "只支持图片文件", events[1].Message)
}

func TestStreamRejectsSize(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{response: "hello"}, WithMaxSize(10))

	events := slices.Collect(r.Stream(context.Background(), provider.File{Content: testImage(t, "png"), ContentType: "image/png"}, ""))

	require.Equal(t, []session.ProgressType{session.ProgressTypeStart, session.ProgressTypeProgress, session.ProgressTypeError}, types(events))
}

func TestStreamReportsRecognitionFailure(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{err: errors.New("upstream down")})

	events := slices.Collect(r.Stream(context.Background(), provider.File{Content: testImage(t, "png"), ContentType: "image/png"}, ""))

	last := events[len(events)-1]

	require.Equal(t, session.ProgressTypeError, last.Type)
	require.True(t, strings.HasPrefix(last.Message, "识别失败: "))
	require.Contains(t, last.Message, "upstream down")
}

func TestStreamDrivesSession(t *testing.T) {
	r := newTestRecognizer(t, &mockCompleter{response: "hello"})
	s := session.New(session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s.SetRecognitionResult(session.RecognitionResult{OriginalImage: "img1", IsProcessing: session.Ptr(true)})

	for event := range r.Stream(context.Background(), provider.File{Content: testImage(t, "png"), ContentType: "image/png"}, "") {
		s.UpdateStreamingProgress(event)
	}

	result := s.RecognitionResult()

	require.Equal(t, "hello", result.RecognizedText)
	require.Equal(t, session.DefaultConfidence, result.Confidence)
	require.False(t, *result.IsProcessing)
	require.False(t, s.IsStreaming())
	require.Equal(t, "识别完成！", s.StreamingLogs()[len(s.StreamingLogs())-1])
}

package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"iter"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unblurai/unblur/pkg/navigator"
	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/recognizer"
	"github.com/unblurai/unblur/pkg/session"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	responses []string
	err       error
}

func (m *mockCompleter) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		if m.err != nil {
			yield(nil, m.err)
			return
		}

		response := m.responses[0]

		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}

		yield(&provider.Completion{
			Message: &provider.Message{
				Role:    provider.MessageRoleAssistant,
				Content: []provider.Content{provider.TextContent(response)},
			},
		}, nil)
	}
}

// blockingCompleter answers the first calls right away and holds every
// later call until release is closed.
type blockingCompleter struct {
	responses  []string
	blockAfter int32

	calls atomic.Int32

	started chan struct{}
	release chan struct{}
}

func newBlockingCompleter(blockAfter int32, responses ...string) *blockingCompleter {
	return &blockingCompleter{
		responses:  responses,
		blockAfter: blockAfter,

		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (c *blockingCompleter) unblock() {
	select {
	case <-c.release:
	default:
		close(c.release)
	}
}

func (c *blockingCompleter) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		n := c.calls.Add(1)

		if n > c.blockAfter {
			select {
			case c.started <- struct{}{}:
			default:
			}

			select {
			case <-c.release:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}

		response := c.responses[min(int(n), len(c.responses))-1]

		yield(&provider.Completion{
			Message: &provider.Message{
				Role:    provider.MessageRoleAssistant,
				Content: []provider.Content{provider.TextContent(response)},
			},
		}, nil)
	}
}

type testEnv struct {
	server  *httptest.Server
	handler *Handler
	client  *http.Client
}

func newTestEnv(t *testing.T, completer provider.Completer) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rec, err := recognizer.New(completer, recognizer.WithLogger(logger))
	require.NoError(t, err)

	store := session.NewStore(session.WithLogger(logger))

	h, err := New(navigator.Default(), store, rec, WithLogger(logger))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.NotFound(h.NotFound)

	h.Attach(r)

	r.Route("/api", func(r chi.Router) {
		h.AttachSession(r)
	})

	s := httptest.NewServer(r)
	t.Cleanup(s.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:  s,
		handler: h,
		client:  &http.Client{Jar: jar},
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()

	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func (e *testEnv) snapshot(t *testing.T) session.Snapshot {
	t.Helper()

	resp, body := e.get(t, "/api/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &result))

	return result
}

func (e *testEnv) upload(t *testing.T, prompt string) *http.Response {
	t.Helper()

	body, contentType := uploadBody(t, prompt, 0)

	resp, err := e.client.Post(e.server.URL+"/", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()

	e.handler.Wait()

	return resp
}

// uploadBody builds the home form with a small PNG and padding bytes of
// extra form data.
func uploadBody(t *testing.T, prompt string, padding int) (io.Reader, string) {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="blurred.png"`)
	header.Set("Content-Type", "image/png")

	part, err := w.CreatePart(header)
	require.NoError(t, err)

	_, err = part.Write(img.Bytes())
	require.NoError(t, err)

	require.NoError(t, w.WriteField("prompt", prompt))

	if padding > 0 {
		require.NoError(t, w.WriteField("notes", strings.Repeat("x", padding)))
	}

	require.NoError(t, w.Close())

	return &body, w.FormDataContentType()
}

func TestViews(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"ok"}})

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<title>UnblurAI - 文字去模糊识别</title>")

	resp, body = env.get(t, "/result")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<title>UnblurAI - 识别结果</title>")
	require.Contains(t, body, "暂无识别结果")
}

func TestUnknownPath(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"ok"}})

	resp, _ := env.get(t, "/unknown")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecognize(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"<|begin_of_box|>清晰文字<|end_of_box|>"}})

	resp := env.upload(t, "read carefully")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/result", resp.Request.URL.Path)

	snapshot := env.snapshot(t)

	require.Equal(t, "read carefully", snapshot.Prompt)
	require.False(t, snapshot.IsLoading)
	require.False(t, snapshot.IsStreaming)

	require.NotNil(t, snapshot.RecognitionResult)
	require.Equal(t, "清晰文字", snapshot.RecognitionResult.RecognizedText)
	require.Equal(t, 0.95, snapshot.RecognitionResult.Confidence)
	require.NotNil(t, snapshot.RecognitionResult.IsProcessing)
	require.False(t, *snapshot.RecognitionResult.IsProcessing)
	require.True(t, strings.HasPrefix(snapshot.RecognitionResult.OriginalImage, "data:image/png;base64,"))

	require.Equal(t, "开始处理图片...", snapshot.StreamingLogs[0])
	require.Equal(t, "识别完成！", snapshot.StreamingLogs[len(snapshot.StreamingLogs)-1])

	_, body := env.get(t, "/result")
	require.Contains(t, body, "清晰文字")
	require.Contains(t, body, "95%")
}

func TestRecognizeFailure(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{err: errors.New("upstream down")})

	env.upload(t, "")

	snapshot := env.snapshot(t)

	require.False(t, snapshot.IsLoading)
	require.False(t, snapshot.IsStreaming)

	require.NotNil(t, snapshot.RecognitionResult)
	require.False(t, *snapshot.RecognitionResult.IsProcessing)
	require.Equal(t, "错误: 识别失败: upstream down", snapshot.StreamingLogs[len(snapshot.StreamingLogs)-1])
}

func TestRecognizeMarkdown(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"# 标题\n- 第一项\n- 第二项"}})

	env.upload(t, "")

	_, body := env.get(t, "/result")
	require.Contains(t, body, "<h1>标题</h1>")
	require.Contains(t, body, "<li>第一项</li>")
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"text"}})

	env.upload(t, "prompt")

	resp, err := env.client.PostForm(env.server.URL+"/result/reset", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "/", resp.Request.URL.Path)

	snapshot := env.snapshot(t)

	require.Empty(t, snapshot.Prompt)
	require.Nil(t, snapshot.RecognitionResult)
	require.False(t, snapshot.IsLoading)
	require.Empty(t, snapshot.StreamingLogs)
	require.False(t, snapshot.IsStreaming)
}

func TestClear(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"text"}})

	env.upload(t, "prompt")

	resp, err := env.client.PostForm(env.server.URL+"/result/clear", nil)
	require.NoError(t, err)
	resp.Body.Close()

	snapshot := env.snapshot(t)

	require.Equal(t, "prompt", snapshot.Prompt)
	require.Nil(t, snapshot.RecognitionResult)
	require.Empty(t, snapshot.StreamingLogs)
}

func TestRefine(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"原文", "改写后"}})

	env.upload(t, "")

	resp, err := env.client.PostForm(env.server.URL+"/result/refine", url.Values{
		"instruction": {"更正错别字"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	snapshot := env.snapshot(t)

	require.Equal(t, "改写后", snapshot.RecognitionResult.RecognizedText)
	require.Equal(t, "文字微调成功", snapshot.StreamingLogs[len(snapshot.StreamingLogs)-1])
}

func TestSessionEvents(t *testing.T) {
	env := newTestEnv(t, &mockCompleter{responses: []string{"text"}})

	env.upload(t, "prompt")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/api/session/events", nil)
	require.NoError(t, err)

	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)

	data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
	require.True(t, ok)

	var snapshot session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))

	require.Equal(t, "prompt", snapshot.Prompt)
	require.Equal(t, "text", snapshot.RecognitionResult.RecognizedText)
}

func TestConcurrentSubmitsStartOneRecognition(t *testing.T) {
	completer := newBlockingCompleter(0, "text")

	env := newTestEnv(t, completer)
	t.Cleanup(completer.unblock)

	// issue the session cookie before the parallel submits
	env.get(t, "/")

	const submits = 8

	type upload struct {
		body        io.Reader
		contentType string
	}

	uploads := make([]upload, submits)

	for i := range uploads {
		body, contentType := uploadBody(t, "prompt", 2<<20)
		uploads[i] = upload{body, contentType}
	}

	errs := make(chan error, submits)

	var wg sync.WaitGroup

	for _, u := range uploads {
		wg.Add(1)

		go func() {
			defer wg.Done()

			resp, err := env.client.Post(env.server.URL+"/", u.contentType, u.body)

			if err == nil {
				resp.Body.Close()
			}

			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	completer.unblock()
	env.handler.Wait()

	require.EqualValues(t, 1, completer.calls.Load())

	snapshot := env.snapshot(t)

	require.False(t, snapshot.IsLoading)
	require.False(t, snapshot.IsStreaming)
	require.Equal(t, "text", snapshot.RecognitionResult.RecognizedText)

	starts := 0

	for _, line := range snapshot.StreamingLogs {
		if line == "开始处理图片..." {
			starts++
		}
	}

	require.Equal(t, 1, starts)
	require.Equal(t, "识别完成！", snapshot.StreamingLogs[len(snapshot.StreamingLogs)-1])
}

func TestResetDuringRefineWins(t *testing.T) {
	completer := newBlockingCompleter(1, "原文", "改写后")

	env := newTestEnv(t, completer)
	t.Cleanup(completer.unblock)

	env.upload(t, "")

	done := make(chan error, 1)

	go func() {
		resp, err := env.client.PostForm(env.server.URL+"/result/refine", url.Values{
			"instruction": {"更正错别字"},
		})

		if err == nil {
			resp.Body.Close()
		}

		done <- err
	}()

	select {
	case <-completer.started:
	case <-time.After(5 * time.Second):
		t.Fatal("refinement did not reach the model")
	}

	resp, err := env.client.PostForm(env.server.URL+"/result/reset", nil)
	require.NoError(t, err)
	resp.Body.Close()

	completer.unblock()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("refinement did not finish")
	}

	snapshot := env.snapshot(t)

	require.Nil(t, snapshot.RecognitionResult)
	require.Empty(t, snapshot.StreamingLogs)
	require.EqualValues(t, 2, completer.calls.Load())
}

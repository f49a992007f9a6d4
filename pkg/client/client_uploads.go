package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/unblurai/unblur/pkg/session"
	"github.com/unblurai/unblur/server/api"
)

type UploadService struct {
	Options []RequestOption
}

func NewUploadService(opts ...RequestOption) UploadService {
	return UploadService{
		Options: opts,
	}
}

type UploadRequest struct {
	Name   string
	Reader io.Reader

	// ContentType defaults to the type registered for the file extension.
	ContentType string

	Prompt string
}

type Upload = api.UploadResponse

func (r *UploadService) New(ctx context.Context, input UploadRequest, opts ...RequestOption) (*Upload, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	req, err := newUploadRequest(ctx, c.URL+"/api/upload", input)

	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	var result Upload

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

// NewStream uploads the image to the streaming endpoint and yields every
// progress event in delivery order.
func (r *UploadService) NewStream(ctx context.Context, input UploadRequest, opts ...RequestOption) iter.Seq2[*session.StreamingProgress, error] {
	return func(yield func(*session.StreamingProgress, error) bool) {
		c := newRequestConfig(append(r.Options, opts...)...)

		req, err := newUploadRequest(ctx, c.URL+"/api/upload-stream", input)

		if err != nil {
			yield(nil, err)
			return
		}

		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.do(req)

		if err != nil {
			yield(nil, err)
			return
		}

		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")

			if !ok {
				continue
			}

			var event session.StreamingProgress

			if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &event); err != nil {
				yield(nil, err)
				return
			}

			if !yield(&event, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Recognize streams a recognition into state the way the browser does:
// the placeholder result is installed first and every event is applied
// in order. Loading is cleared again when the stream ends.
func (r *UploadService) Recognize(ctx context.Context, state *session.State, input UploadRequest, opts ...RequestOption) error {
	if input.Reader == nil {
		return errors.New("missing file")
	}

	data, err := io.ReadAll(input.Reader)

	if err != nil {
		return err
	}

	input.Reader = bytes.NewReader(data)
	input.ContentType = contentType(input)

	state.SetPrompt(input.Prompt)
	state.ClearResult()
	state.SetLoading(true)

	defer state.SetLoading(false)

	state.SetRecognitionResult(session.RecognitionResult{
		OriginalImage: "data:" + input.ContentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		IsProcessing:  session.Ptr(true),
	})

	for event, err := range r.NewStream(ctx, input, opts...) {
		if err != nil {
			state.UpdateStreamingProgress(session.StreamingProgress{
				Type:    session.ProgressTypeError,
				Message: err.Error(),
			})

			return err
		}

		state.UpdateStreamingProgress(*event)
	}

	return nil
}

func newUploadRequest(ctx context.Context, url string, input UploadRequest) (*http.Request, error) {
	if input.Reader == nil {
		return nil, errors.New("missing file")
	}

	var data bytes.Buffer
	w := multipart.NewWriter(&data)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": filepath.Base(input.Name),
	}))
	header.Set("Content-Type", contentType(input))

	file, err := w.CreatePart(header)

	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(file, input.Reader); err != nil {
		return nil, err
	}

	if input.Prompt != "" {
		w.WriteField("custom_prompt", input.Prompt)
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", url, &data)

	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", w.FormDataContentType())

	return req, nil
}

func contentType(input UploadRequest) string {
	if input.ContentType != "" {
		return input.ContentType
	}

	if val := mime.TypeByExtension(strings.ToLower(filepath.Ext(input.Name))); val != "" {
		if mediatype, _, err := mime.ParseMediaType(val); err == nil {
			return mediatype
		}

		return val
	}

	return "application/octet-stream"
}

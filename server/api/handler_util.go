package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/recognizer"
)

// uploadOverhead covers multipart headers and form fields next to the file.
const uploadOverhead = 1 << 20

func valuePrompt(r *http.Request) string {
	if val := r.FormValue("custom_prompt"); val != "" {
		return val
	}

	if val := r.FormValue("prompt"); val != "" {
		return val
	}

	return ""
}

// ReadUpload reads the multipart "file" field. The request body is capped
// before parsing so oversized uploads fail with a *recognizer.SizeError
// without being buffered. At most limit+1 bytes of the file are kept so
// callers can still tell a file just above the limit apart.
func ReadUpload(w http.ResponseWriter, r *http.Request, limit int64) (*provider.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)

	file, header, err := r.FormFile("file")

	if err != nil {
		var maxErr *http.MaxBytesError

		if errors.As(err, &maxErr) {
			return nil, &recognizer.SizeError{Limit: limit}
		}

		return nil, errors.New("missing file")
	}

	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))

	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")

	if mediatype, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediatype
	}

	return &provider.File{
		Name: header.Filename,

		Content:     data,
		ContentType: contentType,
	}, nil
}

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finvault/internal/core"
)

// defaultMaxImageBytes bounds receipt uploads.
const defaultMaxImageBytes = 10 << 20

// errImageTooLarge is shown to the user when the upload exceeds the limit.
var errImageTooLarge = errors.New("image too large")

// multipartOverhead leaves room for the text fields next to the image.
const multipartOverhead = 1 << 20

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *ResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// parseTransactionForm reads the add income/expense form, including the
// optional receipt image. The body is capped at maxImage plus room for the
// text fields.
func parseTransactionForm(w http.ResponseWriter, r *http.Request, kind core.TransactionType, maxImage int64) (core.TransactionForm, *core.Attachment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImage+multipartOverhead)

	form := core.TransactionForm{Type: kind}
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return form, nil, errImageTooLarge
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return form, nil, fmt.Errorf("parse multipart form: %w", err)
		}
		// Plain urlencoded posts carry no image.
		if err := r.ParseForm(); err != nil {
			return form, nil, fmt.Errorf("parse form: %w", err)
		}
	}

	form.Amount = strings.TrimSpace(r.FormValue("amount"))
	form.Category = sanitizeInput(r.FormValue("category"))
	form.Note = sanitizeInput(r.FormValue("note"))
	form.Date = strings.TrimSpace(r.FormValue("date"))

	att, err := readImage(r, maxImage)
	if err != nil {
		return form, nil, err
	}
	return form, att, nil
}

// readImage returns the uploaded "image" part, or nil when none was sent.
func readImage(r *http.Request, maxImage int64) (*core.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}
	header := files[0]
	if header.Size > maxImage {
		return nil, errImageTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImage+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxImage {
		return nil, errImageTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errNotAnImage
	}

	return &core.Attachment{
		Filename:    sanitizeFilename(header.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

var errNotAnImage = errors.New("not an image")

// sanitizeFilename keeps the base name of an upload and drops characters
// that do not belong in a multipart header.
func sanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == '"' || r == 127 {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "receipt"
	}
	return name
}

package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	MaxSize     = 10 << 20
	ContentType = "application/pdf"
)

var (
	ErrTooLarge    = errors.New("resume exceeds 10MB")
	ErrUnsupported = errors.New("resume must be a PDF")
	ErrEmpty       = errors.New("resume is empty")
)

// Check validates size and content type of an uploaded resume.
func Check(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxSize {
		return ErrTooLarge
	}
	if !mimetype.Detect(data).Is(ContentType) {
		return ErrUnsupported
	}
	return nil
}

// Text extracts the plain text layer of a PDF for candidate search.
func Text(data []byte) (string, error) {
	if err := Check(data); err != nil {
		return "", err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.Join(strings.Fields(sb.String()), " "), nil
}

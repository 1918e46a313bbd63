package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements Engine on top of a gosseract client. The client keeps
// trained data loaded between calls, which is what makes handle reuse worth
// pooling.
type Tesseract struct {
	client *gosseract.Client
}

// NewTesseract constructs a tesseract-backed engine handle.
func NewTesseract() (*Tesseract, error) {
	return &Tesseract{client: gosseract.NewClient()}, nil
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize runs OCR on a single image. The underlying call is blocking and
// cannot be interrupted; callers that need a deadline should go through
// Pool.Recognize, which discards the handle on timeout.
func (t *Tesseract) Recognize(ctx context.Context, img Image) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if err := t.client.SetImageFromBytes(img.Data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if img.Language != "" {
		if err := t.client.SetLanguage(strings.Split(img.Language, "+")...); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}
	if img.DPI > 0 {
		if err := t.client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(img.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}

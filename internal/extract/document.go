package extract

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/doctract/doctract/constants"
)

// Document is one uploaded file: an immutable buffer plus the media type the
// client declared and the type sniffed from the bytes. It is created at
// request ingress and discarded when the job terminates.
type Document struct {
	Name         string
	Data         []byte
	DeclaredType string
	DetectedType string
}

// NewDocument builds a Document and sniffs its content type.
func NewDocument(name string, data []byte, declaredType string) Document {
	return Document{
		Name:         name,
		Data:         data,
		DeclaredType: declaredType,
		DetectedType: http.DetectContentType(data),
	}
}

// Format resolves the file format label, preferring the filename extension,
// then the declared media type, then the sniffed one. Returns "" when
// nothing matches a supported format.
func (d Document) Format() string {
	if f := constants.MapExtToFormat(filepath.Ext(d.Name)); f != "" {
		return f
	}
	if f := constants.MapMediaTypeToFormat(d.DeclaredType); f != "" {
		return f
	}
	return constants.MapMediaTypeToFormat(d.DetectedType)
}

// Result is the terminal output of one extraction job.
type Result struct {
	Text      string
	FileType  string // constants format label
	Pages     int
	Method    string // "direct" | "image-ocr" | "pdf-ocr"
	Truncated bool
	Duration  time.Duration
}

// Extraction methods reported on Result.
const (
	MethodDirect   = "direct"
	MethodImageOCR = "image-ocr"
	MethodPDFOCR   = "pdf-ocr"
)

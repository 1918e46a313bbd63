package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/doctract/doctract/constants"
)

// extractPDF tries the embedded text layer first and falls back to
// page-parallel recognition when the document yields no usable text, which
// is what scanned PDFs look like.
func (s *Service) extractPDF(ctx context.Context, doc Document) (Result, error) {
	text, pages, err := pdfText(doc.Data)
	if err == nil && len(strings.TrimSpace(text)) > s.cfg.MinTextLength {
		return Result{
			Text:     Normalize(text),
			FileType: constants.PDF,
			Pages:    pages,
			Method:   MethodDirect,
		}, nil
	}
	if err != nil {
		s.logger.Debug("embedded text extraction failed, falling back to recognition", "name", doc.Name, "error", err)
	} else {
		s.logger.Debug("no usable text layer, falling back to recognition", "name", doc.Name, "chars", len(strings.TrimSpace(text)))
	}
	return s.recognizePDF(ctx, doc)
}

// pdfText extracts the embedded text layer. The parser is known to panic on
// malformed documents, so panics are converted into errors and the caller
// treats them as "no text layer".
func pdfText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), pages, nil
}

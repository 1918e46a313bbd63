package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/doctract/doctract/constants"
	"github.com/doctract/doctract/internal/common"
)

// extractXLSX reads every sheet row by row, cells tab-separated.
func (s *Service) extractXLSX(doc Document) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		return Result{FileType: constants.XLSX}, fmt.Errorf("%w: %v", common.ErrStructuredParse, err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Result{FileType: constants.XLSX}, fmt.Errorf("%w: sheet %q: %v", common.ErrStructuredParse, sheet, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(sheet)
		b.WriteByte('\n')
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return Result{Text: strings.TrimSpace(b.String()), FileType: constants.XLSX, Method: MethodDirect}, nil
}

// extractDOCX pulls the text runs out of word/document.xml.
func (s *Service) extractDOCX(doc Document) (Result, error) {
	data, err := readZipEntry(doc.Data, "word/document.xml")
	if err != nil {
		return Result{FileType: constants.DOCX}, fmt.Errorf("%w: %v", common.ErrStructuredParse, err)
	}
	text, err := wordprocessingText(data)
	if err != nil {
		return Result{FileType: constants.DOCX}, fmt.Errorf("%w: %v", common.ErrStructuredParse, err)
	}
	return Result{Text: Normalize(text), FileType: constants.DOCX, Method: MethodDirect}, nil
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX concatenates slide text in slide order.
func (s *Service) extractPPTX(doc Document) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return Result{FileType: constants.PPTX}, fmt.Errorf("%w: %v", common.ErrStructuredParse, err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, file: f})
	}
	if len(slides) == 0 {
		return Result{FileType: constants.PPTX}, fmt.Errorf("%w: presentation has no slides", common.ErrStructuredParse)
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var b strings.Builder
	for i, sl := range slides {
		rc, err := sl.file.Open()
		if err != nil {
			return Result{FileType: constants.PPTX}, fmt.Errorf("%w: slide %d: %v", common.ErrStructuredParse, sl.num, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Result{FileType: constants.PPTX}, fmt.Errorf("%w: slide %d: %v", common.ErrStructuredParse, sl.num, err)
		}
		text, err := wordprocessingText(data)
		if err != nil {
			return Result{FileType: constants.PPTX}, fmt.Errorf("%w: slide %d: %v", common.ErrStructuredParse, sl.num, err)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(text))
	}
	return Result{Text: Normalize(b.String()), FileType: constants.PPTX, Method: MethodDirect}, nil
}

// extractLegacyDoc shells out to catdoc for pre-OOXML Word files.
func (s *Service) extractLegacyDoc(ctx context.Context, doc Document) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "doctract-doc-*")
	if err != nil {
		return Result{FileType: constants.DOC}, err
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "source.doc")
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		return Result{FileType: constants.DOC}, err
	}

	out, errb, err := s.runner.Run(ctx, s.cfg.Catdoc, path)
	if err != nil {
		return Result{FileType: constants.DOC}, fmt.Errorf("%w: catdoc: %v (%s)", common.ErrStructuredParse, err, errb)
	}
	return Result{Text: Normalize(string(out)), FileType: constants.DOC, Method: MethodDirect}, nil
}

// readZipEntry returns the named file from a zip archive held in memory.
func readZipEntry(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("archive has no %s", name)
}

// wordprocessingText walks OOXML markup collecting the contents of <w:t> /
// <a:t> runs, with a line break per closed paragraph.
func wordprocessingText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	var inRun bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inRun = true
			case "br":
				b.WriteByte('\n')
			case "tab":
				b.WriteByte('\t')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inRun {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

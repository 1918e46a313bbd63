package constants

import "strings"

// File formats the extraction pipeline dispatches on.
const (
	PDF   = "pdf"
	IMAGE = "image"
	TEXT  = "txt"
	DOCX  = "docx"
	DOC   = "doc"
	XLSX  = "xlsx"
	PPTX  = "pptx"
)

// FileTypes holds the canonical format labels reported in metrics.
var FileTypes = []string{PDF, IMAGE, TEXT, DOCX, DOC, XLSX, PPTX}

// extToFormat maps normalized file extensions to a format label.
var extToFormat = map[string]string{
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"bmp":  IMAGE,
	"webp": IMAGE,
	"heic": IMAGE,
	"heif": IMAGE,
	"txt":  TEXT,
	"csv":  TEXT,
	"md":   TEXT,
	"docx": DOCX,
	"doc":  DOC,
	"xlsx": XLSX,
	"pptx": PPTX,
}

// mediaToFormat maps declared or sniffed media types to a format label.
var mediaToFormat = map[string]string{
	"application/pdf":    PDF,
	"text/plain":         TEXT,
	"text/csv":           TEXT,
	"text/markdown":      TEXT,
	"application/msword": DOC,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   DOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         XLSX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": PPTX,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the format label for a file extension, or "" when
// the extension is not recognized.
func MapExtToFormat(ext string) string {
	return extToFormat[NormalizeExt(ext)]
}

// MapMediaTypeToFormat returns the format label for a media type, or "" when
// the type is not recognized. Parameters after ";" are ignored.
func MapMediaTypeToFormat(mediaType string) string {
	mt := strings.TrimSpace(strings.ToLower(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if f, ok := mediaToFormat[mt]; ok {
		return f
	}
	if strings.HasPrefix(mt, "image/") {
		return IMAGE
	}
	if strings.HasPrefix(mt, "text/") {
		return TEXT
	}
	return ""
}

// IsHEICExt reports whether the extension needs conversion before OCR.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/extract"
	"github.com/doctract/doctract/internal/monitoring"
)

// ocrResponse is the success body for POST /api/ocr. ProcessingTime is
// milliseconds.
type ocrResponse struct {
	Text           string `json:"text"`
	FileType       string `json:"fileType"`
	Pages          int    `json:"pages,omitempty"`
	Truncated      bool   `json:"truncated,omitempty"`
	Method         string `json:"method"`
	ProcessingTime int64  `json:"processingTime"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type statusResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Server    string            `json:"server"`
	Metrics   monitoring.Status `json:"metrics"`
}

// handleOCR accepts one multipart upload under the "file" field and
// returns the extracted text. Every terminal outcome, including
// rejected uploads, is recorded on the monitor.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		msg := "no file uploaded"
		if errors.As(err, &maxErr) {
			msg = "uploaded file is too large"
		}
		s.recordFailure("", start, msg)
		writeError(w, http.StatusBadRequest, msg, "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.recordFailure("", start, "uploaded file is too large")
			writeError(w, http.StatusBadRequest, "uploaded file is too large", "")
			return
		}
		s.recordFailure("", start, "reading upload failed")
		writeError(w, http.StatusInternalServerError, "reading upload failed", err.Error())
		return
	}
	if len(data) == 0 {
		s.recordFailure("", start, "no file uploaded")
		writeError(w, http.StatusBadRequest, "no file uploaded", "")
		return
	}

	doc := extract.NewDocument(header.Filename, data, header.Header.Get("Content-Type"))
	result, err := s.extractor.Extract(r.Context(), doc)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Warn("extraction failed",
			zap.String("file", header.Filename),
			zap.String("fileType", result.FileType),
			zap.Error(err))
		s.monitor.Record(monitoring.Request{
			FileType:       result.FileType,
			ProcessingTime: elapsed,
			Error:          err.Error(),
		})
		code := http.StatusInternalServerError
		msg := "text extraction failed"
		if errors.Is(err, common.ErrUnsupportedType) || errors.Is(err, common.ErrInvalidInput) {
			code = http.StatusBadRequest
			msg = err.Error()
		}
		writeError(w, code, msg, err.Error())
		return
	}

	s.monitor.Record(monitoring.Request{
		FileType:       result.FileType,
		ProcessingTime: elapsed,
		Pages:          result.Pages,
		Success:        true,
	})
	s.logger.Info("extraction completed",
		zap.String("file", header.Filename),
		zap.String("fileType", result.FileType),
		zap.String("method", result.Method),
		zap.Int("pages", result.Pages),
		zap.Duration("duration", elapsed))

	writeJSON(w, http.StatusOK, ocrResponse{
		Text:           result.Text,
		FileType:       result.FileType,
		Pages:          result.Pages,
		Truncated:      result.Truncated,
		Method:         result.Method,
		ProcessingTime: elapsed.Milliseconds(),
	})
}

// handleLiveness answers as long as the process is up; it never
// consults the monitor.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"services": map[string]string{
			"pdf": "active",
			"ocr": "active",
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

// handleHealth reports derived health. Critical maps to 503 so load
// balancers can rotate the instance out; warning and degraded still
// return 200.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := s.monitor.Health()
	code := http.StatusOK
	if health.Status == "critical" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Timestamp: time.Now().UnixMilli(),
		Server:    s.name,
		Metrics:   s.monitor.Status(),
	})
}

func (s *Server) recordFailure(fileType string, start time.Time, msg string) {
	s.monitor.Record(monitoring.Request{
		FileType:       fileType,
		ProcessingTime: time.Since(start),
		Error:          msg,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, details string) {
	writeJSON(w, code, errorResponse{Error: msg, Details: details})
}

package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	maxBodySize = int64(1 << 20)  // 1MB of JSON is far more than any receipt
	maxFormSize = int64(50 << 20) // 50MB to handle high-resolution phone photos
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// respondError maps service errors to status codes. Unexpected errors are
// logged and answered without detail.
func respondError(w http.ResponseWriter, err error) {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		formatErr     *FormatError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &formatErr):
		writeError(w, http.StatusBadRequest, formatErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, ErrScanningDisabled):
		writeError(w, http.StatusServiceUnavailable, "Receipt scanning is not enabled")
	default:
		slog.Error("Internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// receiptID reads and normalizes the {id} path value. It writes a 400 and
// returns false when the value isn't a UUID.
func receiptID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receipt id")
		return "", false
	}
	return id.String(), true
}

// handleProcessReceipt accepts a JSON receipt and returns its new ID
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	var sub *Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := sub.Receipt()
	if err != nil {
		respondError(w, err)
		return
	}

	id, err := s.service.ProcessReceipt(receipt)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleGetPoints returns the points awarded to a receipt
func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	points, err := s.service.GetPoints(id)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"points": points})
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.GetReceipt(id)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// detectContentType falls back to the file extension when the part has no Content-Type
func detectContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleScanReceipt accepts a receipt image upload, scans it and returns the new ID
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)

	id, err := s.service.ScanReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleGetReceiptFile returns the archived image of a scanned receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

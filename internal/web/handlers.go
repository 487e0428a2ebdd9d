package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/openarena/telemetry-uplink/internal/logging"
	"github.com/openarena/telemetry-uplink/internal/telemetry"
)

// uploadRequest is the JSON body of POST /api/upload.
type uploadRequest struct {
	CSVData   string `json:"csv_data"`
	Encoding  string `json:"encoding"`   // "plain" (default) or "base64"
	SessionID string `json:"session_id"` // generated when absent
	UserID    string `json:"user_id"`
}

// uploadResponse is the success body of POST /api/upload.
type uploadResponse struct {
	Message   string `json:"message"`
	S3Key     string `json:"s3_key"`
	RowCount  int    `json:"row_count"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleUpload accepts one telemetry CSV payload: decode, size-check,
// validate, then persist under {user_id}/{session_id}.csv. Validation
// failures are client errors; only storage trouble is a server error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	// Base64 inflates the payload by a third and the JSON envelope adds
	// more; the precise cap on the decoded text is enforced below.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize*2+4096)

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.UploadsRejected.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	if req.CSVData == "" {
		s.metrics.UploadsRejected.WithLabelValues("missing_payload").Inc()
		writeError(w, http.StatusBadRequest, "Missing csv_data in request body")
		return
	}

	data := req.CSVData
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			s.metrics.UploadsRejected.WithLabelValues("bad_encoding").Inc()
			writeError(w, http.StatusBadRequest, "Invalid base64 encoding: "+err.Error())
			return
		}
		if !utf8.Valid(decoded) {
			s.metrics.UploadsRejected.WithLabelValues("bad_encoding").Inc()
			writeError(w, http.StatusBadRequest, "Invalid base64 encoding: decoded payload is not valid UTF-8")
			return
		}
		data = string(decoded)
	}

	if int64(len(data)) > s.cfg.Upload.MaxFileSize {
		s.metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Max size: %d bytes", s.cfg.Upload.MaxFileSize))
		return
	}

	verdict := telemetry.Validate(data)
	if !verdict.Valid {
		s.metrics.UploadsRejected.WithLabelValues("invalid_csv").Inc()
		logger.Info("payload rejected", "reason", verdict.Error)
		writeError(w, http.StatusBadRequest, "Invalid CSV: "+verdict.Error)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = telemetry.NewSessionID()
	}

	userID := req.UserID
	if userID == "" {
		// Anonymous runs have always landed under a literal "None"
		// prefix; the analysis jobs rely on that namespace.
		userID = "None"
	}

	key := fmt.Sprintf("%s/%s.csv", userID, sessionID)
	metadata := map[string]string{
		"session_id":       sessionID,
		"row_count":        strconv.Itoa(verdict.RowCount),
		"upload_timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.sink.Put(r.Context(), key, []byte(data), "text/csv", metadata); err != nil {
		s.metrics.StorageFailures.Inc()
		logger.Error("storage put failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "S3 upload failed: "+err.Error())
		return
	}

	s.metrics.UploadsAccepted.Inc()
	s.metrics.UploadBytes.Observe(float64(len(data)))
	s.metrics.UploadRows.Observe(float64(verdict.RowCount))
	logger.Info("telemetry stored",
		"key", key,
		"rows", verdict.RowCount,
		"bytes", len(data),
	)

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:   "Telemetry uploaded successfully",
		S3Key:     key,
		RowCount:  verdict.RowCount,
		SessionID: sessionID,
	})
}

// handlePreflight answers the CORS preflight for the upload route. The
// headers themselves are set by the corsHeaders middleware.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

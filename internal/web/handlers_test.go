package web

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openarena/telemetry-uplink/internal/config"
	"github.com/openarena/telemetry-uplink/internal/metrics"
	"github.com/openarena/telemetry-uplink/internal/storage"
	"github.com/openarena/telemetry-uplink/internal/telemetry"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Upload:  config.UploadConfig{MaxFileSize: 10 * 1024 * 1024},
		Storage: config.StorageConfig{Bucket: "telemetry-test", Region: "us-east-1"},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(cfg *config.Config, sink storage.Sink) *Server {
	return NewServer(cfg, sink, metrics.New())
}

func sampleCSV(rows int) string {
	var b strings.Builder
	b.WriteString(strings.Join(telemetry.ExpectedHeader, ","))
	b.WriteByte('\n')
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "1,%d,100.0,0.5,0.1,0.2,0.3,1.0,2.0,3.0,"+
			"forward,rotate,No,No,No,None,None,No,spawner,zone,cam0,ray\n", i)
	}
	return b.String()
}

func postUpload(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestUpload_Plain(t *testing.T) {
	sink := storage.NewMemorySink()
	s := newTestServer(testConfig(), sink)

	csvText := sampleCSV(3)
	rec := postUpload(t, s, map[string]string{
		"csv_data":   csvText,
		"encoding":   "plain",
		"session_id": "abc123def456",
		"user_id":    "player-7",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RowCount != 3 {
		t.Errorf("row_count = %d, want 3", resp.RowCount)
	}
	if resp.S3Key != "player-7/abc123def456.csv" {
		t.Errorf("s3_key = %q, want %q", resp.S3Key, "player-7/abc123def456.csv")
	}
	if resp.SessionID != "abc123def456" {
		t.Errorf("session_id = %q, want caller-supplied id", resp.SessionID)
	}
	if resp.Message != "Telemetry uploaded successfully" {
		t.Errorf("message = %q", resp.Message)
	}

	obj, ok := sink.Get(resp.S3Key)
	if !ok {
		t.Fatal("object not stored")
	}
	if string(obj.Body) != csvText {
		t.Error("stored body differs from uploaded payload")
	}
	if obj.ContentType != "text/csv" {
		t.Errorf("content type = %q, want text/csv", obj.ContentType)
	}
	if obj.Metadata["row_count"] != "3" {
		t.Errorf("row_count metadata = %q, want \"3\"", obj.Metadata["row_count"])
	}
	if obj.Metadata["session_id"] != "abc123def456" {
		t.Errorf("session_id metadata = %q", obj.Metadata["session_id"])
	}
	if ts := obj.Metadata["upload_timestamp"]; ts == "" {
		t.Error("upload_timestamp metadata missing")
	} else if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("upload_timestamp %q is not RFC 3339: %v", ts, err)
	}
}

func TestUpload_CORSHeaders(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	// Success and error responses alike must carry the CORS headers.
	for _, body := range []map[string]string{
		{"csv_data": sampleCSV(1)},
		{},
	} {
		rec := postUpload(t, s, body)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
			t.Errorf("Access-Control-Allow-Headers = %q, want Content-Type", got)
		}
		if got := rec.Header().Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
	}
}

func TestUpload_Preflight(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	req := httptest.NewRequest(http.MethodOptions, "/api/upload", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestUpload_Base64MatchesPlain(t *testing.T) {
	csvText := sampleCSV(3)

	plainSink := storage.NewMemorySink()
	plain := postUpload(t, newTestServer(testConfig(), plainSink), map[string]string{
		"csv_data":   csvText,
		"encoding":   "plain",
		"session_id": "abc123def456",
		"user_id":    "player-7",
	})

	b64Sink := storage.NewMemorySink()
	b64 := postUpload(t, newTestServer(testConfig(), b64Sink), map[string]string{
		"csv_data":   base64.StdEncoding.EncodeToString([]byte(csvText)),
		"encoding":   "base64",
		"session_id": "abc123def456",
		"user_id":    "player-7",
	})

	if plain.Code != http.StatusOK || b64.Code != http.StatusOK {
		t.Fatalf("status plain=%d base64=%d, want 200/200", plain.Code, b64.Code)
	}
	if plain.Body.String() != b64.Body.String() {
		t.Errorf("base64 response differs from plain:\n%s\nvs\n%s", b64.Body, plain.Body)
	}

	obj, ok := b64Sink.Get("player-7/abc123def456.csv")
	if !ok {
		t.Fatal("base64 upload not stored")
	}
	if string(obj.Body) != csvText {
		t.Error("stored body should be the decoded payload")
	}
}

func TestUpload_MissingCSVData(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	rec := postUpload(t, s, map[string]string{"encoding": "plain"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "csv_data") {
		t.Errorf("error = %q, should mention csv_data", msg)
	}
}

func TestUpload_InvalidBase64(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	rec := postUpload(t, s, map[string]string{
		"csv_data": "not valid base64!!!",
		"encoding": "base64",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.HasPrefix(msg, "Invalid base64 encoding") {
		t.Errorf("error = %q, want base64 decode failure", msg)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 256
	s := newTestServer(cfg, storage.NewMemorySink())

	rec := postUpload(t, s, map[string]string{"csv_data": sampleCSV(5)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "256") {
		t.Errorf("error = %q, should state the size cap", msg)
	}
}

func TestUpload_InvalidCSV(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	rec := postUpload(t, s, map[string]string{"csv_data": "Wrong,Header\n1,2\n"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.HasPrefix(msg, "Invalid CSV: ") {
		t.Errorf("error = %q, want Invalid CSV prefix", msg)
	}
}

func TestUpload_StorageFailure(t *testing.T) {
	sink := storage.NewMemorySink()
	sink.FailWith(errors.New("bucket unavailable"))
	s := newTestServer(testConfig(), sink)

	rec := postUpload(t, s, map[string]string{"csv_data": sampleCSV(1)})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.HasPrefix(msg, "S3 upload failed: ") {
		t.Errorf("error = %q, want S3 upload failed prefix", msg)
	}
}

func TestUpload_DefaultsForMissingIdentifiers(t *testing.T) {
	sink := storage.NewMemorySink()
	s := newTestServer(testConfig(), sink)

	rec := postUpload(t, s, map[string]string{"csv_data": sampleCSV(2)})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	// Anonymous uploads keep the historical "None" prefix.
	if !strings.HasPrefix(resp.S3Key, "None/") {
		t.Errorf("s3_key = %q, want None/ prefix", resp.S3Key)
	}
	if len(resp.SessionID) != 12 {
		t.Errorf("generated session_id = %q, want 12 hex chars", resp.SessionID)
	}
	if resp.S3Key != "None/"+resp.SessionID+".csv" {
		t.Errorf("s3_key = %q, inconsistent with session_id %q", resp.S3Key, resp.SessionID)
	}
	if sink.Len() != 1 {
		t.Errorf("stored objects = %d, want 1", sink.Len())
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(testConfig(), storage.NewMemorySink())

	// Record something first so the exposition has content.
	postUpload(t, s, map[string]string{"csv_data": sampleCSV(1)})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "uplink_uploads_accepted_total") {
		t.Error("exposition missing uplink_uploads_accepted_total")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(cfg, storage.NewMemorySink())

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.9:4455"
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aqlanhadi/extrato/config"
	"github.com/aqlanhadi/extrato/extractor"
	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/aqlanhadi/extrato/extractor/layout"
	"github.com/aqlanhadi/extrato/logger"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const statementText = `CAIXA ECONOMICA FEDERAL
17/12/2024 123456 PIX RECEBIDO JOAO 1.057,00C
17/12/2024 654321 PAGAMENTO BOLETO 60,00D 997,00C`

func newTestServer(t *testing.T, src extractor.PageSource) *Server {
	t.Helper()

	var extractorOpts []extractor.Option
	if src != nil {
		extractorOpts = append(extractorOpts, extractor.WithTextSource(src))
	}
	return newTestServerWith(t, extractorOpts...)
}

func newTestServerWith(t *testing.T, extractorOpts ...extractor.Option) *Server {
	t.Helper()

	opts := common.DefaultOptions()
	opts.DefaultYear = 2024
	cfg := config.Config{Conversion: opts, PDF: config.PDF{Source: common.SourceText}}

	registry, err := layout.NewRegistry(map[string]layout.Definition{
		"CAIXA": {Priority: 10, Detect: `(?i)caixa\s+econ[oô]mica`},
	}, opts.Indicators)
	if err != nil {
		t.Fatalf("Failed to build layouts: %v", err)
	}

	return New(DefaultConfig(), extractor.New(cfg, registry, extractorOpts...), zerolog.Nop())
}

func textSource(text string) extractor.PageSource {
	return func([]byte) ([]common.Page, error) {
		return []common.Page{{Number: 1, Lines: strings.Split(text, "\n")}}, nil
	}
}

func uploadRequest(t *testing.T, target string, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "extrato.pdf")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	io.WriteString(part, "%PDF-1.4 mock content")
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != ":8080" {
		t.Errorf("Expected port ':8080', got '%s'", cfg.Port)
	}
	if cfg.DefaultFormat != "json" {
		t.Errorf("Expected default format 'json', got '%s'", cfg.DefaultFormat)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestLayoutsEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/layouts", nil))

	var response map[string][]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got := strings.Join(response["layouts"], ","); got != "CAIXA,GENERIC" {
		t.Errorf("Expected layouts 'CAIXA,GENERIC', got '%s'", got)
	}
}

func TestExtractEndpoint_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/extract", nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestExtractEndpoint_NoFile(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/extract", nil)
	req.Header.Set("Content-Type", "multipart/form-data")
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExtractEndpoint_InvalidFile(t *testing.T) {
	server := newTestServer(t, nil)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}
}

func TestExtractEndpoint_JSON(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["layout"] != "CAIXA" {
		t.Errorf("Expected layout 'CAIXA', got '%v'", response["layout"])
	}
	if response["source"] != "extrato" {
		t.Errorf("Expected source 'extrato', got '%v'", response["source"])
	}
	if records, ok := response["records"].([]interface{}); !ok || len(records) != 2 {
		t.Errorf("Expected 2 records, got %v", response["records"])
	}
}

func TestExtractEndpoint_RecordsOnly(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract?records_only=true", nil))

	var records []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
}

func TestExtractEndpoint_CSV(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract", map[string]string{"format": "csv"}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected Content-Type 'text/csv', got '%s'", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "extrato.csv") {
		t.Errorf("Expected attachment extrato.csv, got '%s'", cd)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d lines", len(lines))
	}
	if lines[2] != "17/12/2024,PAGAMENTO BOLETO,60.00,,997.00" {
		t.Errorf("Unexpected row: %s", lines[2])
	}
}

func TestExtractEndpoint_XLSX(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract?format=xlsx", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Extrato")
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(rows))
	}
}

func TestExtractEndpoint_UnsupportedFormat(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract?format=ofx", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExtractEndpoint_NoTransactions(t *testing.T) {
	server := newTestServer(t, textSource("CAIXA ECONOMICA FEDERAL\nSem lancamentos"))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract", nil))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
}

func TestExtractEndpoint_UnknownLayout(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract", map[string]string{"statement_type": "NUBANK"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown layout") {
		t.Errorf("Expected unknown layout error, got %s", w.Body.String())
	}
}

func TestExtractEndpoint_TextOnly(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract?text_only=true", nil))

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["filename"] != "extrato.pdf" {
		t.Errorf("Expected filename 'extrato.pdf', got '%v'", response["filename"])
	}
	if response["text"] != statementText {
		t.Errorf("Expected page text to be returned, got '%v'", response["text"])
	}
}

func TestExtractEndpoint_TextOnlyError(t *testing.T) {
	server := newTestServer(t, func([]byte) ([]common.Page, error) { return nil, errors.New("malformed PDF") })

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract?text_only=true", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExtractEndpoint_SourceSelectsTables(t *testing.T) {
	server := newTestServerWith(t,
		extractor.WithTextSource(textSource(statementText)),
		extractor.WithTableSource(textSource("05/11/2024 DEPOSITO 250,00\n06/11/2024 SAQUE 50,00-\n07/11/2024 PIX ENVIADO 10,00-")),
	)

	for _, tt := range []struct {
		target  string
		records int
	}{
		{"/extract?records_only=true", 2},
		{"/extract?records_only=true&source=text", 2},
		{"/extract?records_only=true&source=table", 3},
	} {
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, uploadRequest(t, tt.target, nil))

		var records []map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
			t.Fatalf("%s: failed to decode response: %v", tt.target, err)
		}
		if len(records) != tt.records {
			t.Errorf("%s: expected %d records, got %d", tt.target, tt.records, len(records))
		}
	}
}

func TestExtractEndpoint_UnsupportedSource(t *testing.T) {
	server := newTestServer(t, textSource(statementText))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, uploadRequest(t, "/extract?source=ocr", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestWriteJSON_LogsEncodeError(t *testing.T) {
	buf := &bytes.Buffer{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context(), zerolog.New(buf)))
	w := httptest.NewRecorder()

	writeJSON(w, req, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	if !strings.Contains(buf.String(), "could not encode response") {
		t.Errorf("Expected encode error to be logged, got %s", buf.String())
	}
}

func TestParseExtractOptions_FormValues(t *testing.T) {
	server := newTestServer(t, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("summary_only", "true")
	writer.WriteField("statement_type", "CAIXA")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ParseMultipartForm(32 << 20)

	opts := server.parseExtractOptions(req)

	if !opts.SummaryOnly {
		t.Error("Expected SummaryOnly to be true")
	}
	if opts.StatementType != "CAIXA" {
		t.Errorf("Expected StatementType 'CAIXA', got '%s'", opts.StatementType)
	}
	if opts.Format != "json" {
		t.Errorf("Expected Format 'json', got '%s'", opts.Format)
	}
}

func TestParseExtractOptions_QueryParams(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/extract?records_only=true&text_only=true&source=TABLE", nil)

	opts := server.parseExtractOptions(req)

	if !opts.RecordsOnly {
		t.Error("Expected RecordsOnly to be true")
	}
	if !opts.TextOnly {
		t.Error("Expected TextOnly to be true")
	}
	if opts.Source != common.SourceTable {
		t.Errorf("Expected Source 'table', got '%s'", opts.Source)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		input    []string
		expected string
	}{
		{[]string{"", "", "third"}, "third"},
		{[]string{"first", "second"}, "first"},
		{[]string{"", ""}, ""},
		{[]string{}, ""},
		{[]string{"only"}, "only"},
	}

	for _, tt := range tests {
		result := coalesce(tt.input...)
		if result != tt.expected {
			t.Errorf("coalesce(%v) = '%s', expected '%s'", tt.input, result, tt.expected)
		}
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestRequestLogger_KeepsRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := RequestLogger(zerolog.New(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("Expected X-Request-ID 'req-42', got '%s'", w.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), `"status":418`) || !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("Expected request log line, got %s", buf.String())
	}
}

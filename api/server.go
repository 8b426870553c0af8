// Package api serves the converter over HTTP. A PDF is posted to /extract and
// the records come back as JSON, CSV or an XLSX workbook.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aqlanhadi/extrato/extractor"
	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/aqlanhadi/extrato/extractor/layout"
	"github.com/aqlanhadi/extrato/logger"
	"github.com/aqlanhadi/extrato/writer"
	"github.com/rs/zerolog"
)

// Config holds the API server configuration
type Config struct {
	Port            string
	DefaultTextOnly bool
	DefaultFormat   string
	MaxUploadBytes  int64
}

// DefaultConfig returns the default API configuration
func DefaultConfig() Config {
	return Config{
		Port:           ":8080",
		DefaultFormat:  "json",
		MaxUploadBytes: 32 << 20,
	}
}

type Server struct {
	config    Config
	extractor *extractor.Extractor
	log       zerolog.Logger
	mux       *http.ServeMux
}

func New(cfg Config, ex *extractor.Extractor, log zerolog.Logger) *Server {
	s := &Server{
		config:    cfg,
		extractor: ex,
		log:       log,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/extract", s.handleExtract)
	s.mux.HandleFunc("/layouts", s.handleLayouts)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// Handler returns the routes wrapped in recovery and request logging, for use
// with a custom http.Server.
func (s *Server) Handler() http.Handler {
	return RequestLogger(s.log)(Recovery(s.log)(s.mux))
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.config.Port).Msg("starting server")
	return http.ListenAndServe(s.config.Port, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{"layouts": s.extractor.Layouts()})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		log.Warn().Err(err).Msg("could not parse multipart form")
		writeError(w, r, http.StatusBadRequest, "Could not parse multipart form: "+err.Error())
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Could not get uploaded file: "+err.Error())
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("could not read upload")
		writeError(w, r, http.StatusInternalServerError, "Could not read file: "+err.Error())
		return
	}

	opts := s.parseExtractOptions(r)

	if opts.TextOnly {
		s.handleTextOnlyExtract(w, r, bytes.NewReader(fileBytes), handler.Filename)
		return
	}

	out, err := writer.New(opts.Format)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ex := s.extractor
	switch opts.Source {
	case "":
	case common.SourceText, common.SourceTable:
		ex = ex.ForSource(opts.Source)
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported source %q (want text or table)", opts.Source))
		return
	}

	stmt, err := ex.ProcessReader(r.Context(), bytes.NewReader(fileBytes), handler.Filename, opts.StatementType)
	switch {
	case errors.Is(err, extractor.ErrNoTransactions):
		writeJSON(w, r, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    err.Error(),
			"source":   stmt.Source,
			"layout":   stmt.Layout,
			"warnings": stmt.Warnings,
		})
		return
	case errors.Is(err, layout.ErrUnknownLayout):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Warn().Err(err).Str("filename", handler.Filename).Msg("conversion failed")
		writeError(w, r, http.StatusBadRequest, "Could not convert file: "+err.Error())
		return
	}

	if _, ok := out.(*writer.JSONWriter); ok {
		writeJSON(w, r, http.StatusOK, extractor.CreateFinalOutput(stmt, opts.RecordsOnly, opts.SummaryOnly))
		return
	}

	w.Header().Set("Content-Type", out.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stmt.Source+out.Extension()))
	if err := out.Write(w, stmt); err != nil {
		log.Error().Err(err).Msg("could not write response")
	}
}

// ExtractOptions holds the options for extraction
type ExtractOptions struct {
	SummaryOnly   bool
	RecordsOnly   bool
	TextOnly      bool
	StatementType string
	Format        string
	Source        common.Source
}

// parseExtractOptions reads options from the form, falling back to the query string.
func (s *Server) parseExtractOptions(r *http.Request) ExtractOptions {
	value := func(key string) string {
		return coalesce(r.FormValue(key), r.URL.Query().Get(key))
	}
	return ExtractOptions{
		SummaryOnly:   value("summary_only") == "true",
		RecordsOnly:   value("records_only") == "true",
		TextOnly:      s.config.DefaultTextOnly || value("text_only") == "true",
		StatementType: value("statement_type"),
		Format:        coalesce(value("format"), s.config.DefaultFormat),
		Source:        common.Source(strings.ToLower(value("source"))),
	}
}

// handleTextOnlyExtract returns the page lines the parser would see.
func (s *Server) handleTextOnlyExtract(w http.ResponseWriter, r *http.Request, reader io.Reader, filename string) {
	log := logger.FromContext(r.Context())

	pages, err := s.extractor.ExtractText(reader, s.parseExtractOptions(r).Source)
	if err != nil {
		log.Warn().Err(err).Msg("could not extract text")
		writeError(w, r, http.StatusBadRequest, "Could not extract text from file: "+err.Error())
		return
	}

	var lines []string
	for _, p := range pages {
		lines = append(lines, p.Lines...)
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"filename": filename,
		"pages":    len(pages),
		"text":     strings.Join(lines, "\n"),
	})
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

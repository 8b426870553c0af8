package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aqlanhadi/extrato/config"
	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/aqlanhadi/extrato/extractor/layout"
	"github.com/aqlanhadi/extrato/extractor/statement"
	"github.com/aqlanhadi/extrato/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoTransactions means the document was read but yielded no records.
var ErrNoTransactions = errors.New("no transactions found")

// PageSource loads the pages of a PDF.
type PageSource func(data []byte) ([]common.Page, error)

type Extractor struct {
	cfg     config.Config
	layouts *layout.Registry

	textPages  PageSource
	tablePages PageSource

	// source, when set, wins over the layout and configuration.
	source common.Source
}

type Option func(*Extractor)

// WithTextSource replaces the dslipak/pdf text reader.
func WithTextSource(src PageSource) Option {
	return func(e *Extractor) { e.textPages = src }
}

// WithTableSource replaces the unipdf table reader.
func WithTableSource(src PageSource) Option {
	return func(e *Extractor) { e.tablePages = src }
}

func New(cfg config.Config, layouts *layout.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:     cfg,
		layouts: layouts,
		textPages: func(data []byte) ([]common.Page, error) {
			return common.ExtractPagesFromPDFReader(bytes.NewReader(data))
		},
		tablePages: func(data []byte) ([]common.Page, error) {
			return common.ExtractTablesFromPDFReader(bytes.NewReader(data), cfg.PDF.LicenseKey)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ForSource returns a copy of e that extracts pages from source regardless of
// the layout's preference.
func (e *Extractor) ForSource(source common.Source) *Extractor {
	c := *e
	c.source = source
	return &c
}

// Layouts lists the configured layout names in detection order.
func (e *Extractor) Layouts() []string {
	return e.layouts.Names()
}

// ProcessReader converts one PDF. statementType names a layout; empty means detect.
// When the document holds no transactions the statement is returned together
// with ErrNoTransactions.
func (e *Extractor) ProcessReader(ctx context.Context, reader io.Reader, filename, statementType string) (common.Statement, error) {
	startTime := time.Now()
	stmt := common.Statement{
		ID:      uuid.NewString(),
		Source:  strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		Records: []common.Record{},
	}
	log := logger.FromContext(ctx).With().Str("run_id", stmt.ID).Str("source", stmt.Source).Logger()
	ctx = logger.WithContext(ctx, log)

	data, err := io.ReadAll(reader)
	if err != nil {
		return stmt, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	pages, err := e.textPages(data)
	if err != nil {
		return stmt, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	lay, err := e.selectLayout(pages, statementType)
	if err != nil {
		return stmt, err
	}
	stmt.Layout = lay.Name()
	log.Debug().Str("layout", lay.Name()).Int("pages", len(pages)).Msg("layout selected")

	if e.sourceFor(lay) == common.SourceTable {
		tables, err := e.tablePages(data)
		if err != nil {
			log.Warn().Err(err).Msg("table extraction failed, using page text")
			stmt.Warnings = append(stmt.Warnings, "table extraction unavailable: "+err.Error())
		} else {
			pages = tables
		}
	}
	stmt.Pages = len(pages)

	candidates, warnings, err := e.parsePages(ctx, lay, pages)
	stmt.Warnings = append(stmt.Warnings, warnings...)
	if err != nil {
		return stmt, err
	}

	records, warnings := statement.Assemble(candidates, e.cfg.Conversion)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	stmt.Warnings = append(stmt.Warnings, warnings...)
	stmt.Records = records
	summarize(&stmt)

	log.Debug().
		Int("candidates", len(candidates)).
		Int("records", len(records)).
		Dur("elapsed", time.Since(startTime)).
		Msg("conversion finished")

	if len(records) == 0 {
		return stmt, ErrNoTransactions
	}
	return stmt, nil
}

func (e *Extractor) ProcessFile(ctx context.Context, path, statementType string) (common.Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return common.Statement{}, err
	}
	defer f.Close()
	return e.ProcessReader(ctx, f, path, statementType)
}

// ProcessPath converts a single file or every PDF in a directory. Files that
// fail or hold no transactions are logged and left out.
func (e *Extractor) ProcessPath(ctx context.Context, path, statementType string) ([]common.Statement, error) {
	log := logger.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, entry := range entries {
			if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}

	var result []common.Statement
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		log.Info().Str("file", file).Msg("scanning")
		stmt, err := e.ProcessFile(ctx, file, statementType)
		switch {
		case errors.Is(err, ErrNoTransactions):
			log.Warn().Str("file", file).Msg("no transactions found")
		case err != nil:
			log.Error().Err(err).Str("file", file).Msg("conversion failed")
		default:
			result = append(result, stmt)
		}
	}
	return result, nil
}

// ExtractText returns the pages as the parser would see them, for layout tuning.
func (e *Extractor) ExtractText(reader io.Reader, source common.Source) ([]common.Page, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = e.cfg.PDF.Source
	}
	if source == common.SourceTable {
		return e.tablePages(data)
	}
	return e.textPages(data)
}

func (e *Extractor) selectLayout(pages []common.Page, statementType string) (layout.Layout, error) {
	if statementType != "" {
		return e.layouts.Get(statementType)
	}

	var text strings.Builder
	for _, p := range pages {
		for _, line := range p.Lines {
			text.WriteString(line)
			text.WriteByte('\n')
		}
	}
	return e.layouts.Detect(text.String()), nil
}

func (e *Extractor) sourceFor(lay layout.Layout) common.Source {
	if e.source != "" {
		return e.source
	}
	if s := lay.Source(); s != "" {
		return s
	}
	return e.cfg.PDF.Source
}

// parsePages runs the layout over every page and merges the candidates in page
// order. Cancellation is honoured between pages.
func (e *Extractor) parsePages(ctx context.Context, lay layout.Layout, pages []common.Page) ([]common.Candidate, []string, error) {
	log := logger.FromContext(ctx)
	perPage := make([][]common.Candidate, len(pages))

	var warnings []string
	for _, p := range pages {
		if len(p.Lines) == 0 {
			msg := fmt.Sprintf("page %d has no text, skipped", p.Number)
			log.Warn().Int("page", p.Number).Msg("page has no text, skipped")
			warnings = append(warnings, msg)
		}
	}

	if workers := e.cfg.Conversion.Workers; workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, p := range pages {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				perPage[i] = lay.ExtractCandidates(p)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, warnings, fmt.Errorf("conversion cancelled: %w", err)
		}
	} else {
		for i, p := range pages {
			if err := ctx.Err(); err != nil {
				return nil, warnings, fmt.Errorf("conversion cancelled at page %d: %w", p.Number, err)
			}
			perPage[i] = lay.ExtractCandidates(p)
		}
	}

	var candidates []common.Candidate
	for i, cands := range perPage {
		log.Debug().Int("page", pages[i].Number).Int("candidates", len(cands)).Msg("page parsed")
		for _, c := range cands {
			c.Sequence = len(candidates) + 1
			candidates = append(candidates, c)
		}
	}
	return candidates, warnings, nil
}

func summarize(stmt *common.Statement) {
	for _, rec := range stmt.Records {
		if rec.Debit != nil {
			stmt.TotalDebit = stmt.TotalDebit.Add(*rec.Debit)
		}
		if rec.Credit != nil {
			stmt.TotalCredit = stmt.TotalCredit.Add(*rec.Credit)
		}
		if rec.Day != nil {
			if stmt.TransactionStartDate == nil || rec.Day.Before(*stmt.TransactionStartDate) {
				stmt.TransactionStartDate = rec.Day
			}
			if stmt.TransactionEndDate == nil || rec.Day.After(*stmt.TransactionEndDate) {
				stmt.TransactionEndDate = rec.Day
			}
		}
	}
	stmt.Nett = stmt.TotalCredit.Sub(stmt.TotalDebit)
}

// CreateFinalOutput shapes the response: only the records, only the summary,
// or the whole statement.
func CreateFinalOutput(stmt common.Statement, recordsOnly, summaryOnly bool) interface{} {
	if recordsOnly {
		return stmt.Records
	}

	output := map[string]interface{}{
		"id":           stmt.ID,
		"source":       stmt.Source,
		"layout":       stmt.Layout,
		"pages":        stmt.Pages,
		"total_debit":  stmt.TotalDebit,
		"total_credit": stmt.TotalCredit,
		"nett":         stmt.Nett,
		"record_count": len(stmt.Records),
	}
	if stmt.TransactionStartDate != nil {
		output["transaction_start_date"] = stmt.TransactionStartDate
		output["transaction_end_date"] = stmt.TransactionEndDate
	}
	if len(stmt.Warnings) > 0 {
		output["warnings"] = stmt.Warnings
	}
	if !summaryOnly {
		output["records"] = stmt.Records
	}
	return output
}

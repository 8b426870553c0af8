package writer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/shopspring/decimal"
)

// Header is the column order of every tabular export.
var Header = []string{"Date", "Description", "Debit", "Credit", "Balance"}

// Writer renders a statement's records.
type Writer interface {
	Write(out io.Writer, stmt common.Statement) error
	Extension() string
	ContentType() string
}

// New returns the writer for format: xlsx, csv or json.
func New(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "xlsx":
		return &XLSXWriter{Sheet: "Extrato"}, nil
	case "csv":
		return &CSVWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}

// WriteToFile writes stmt to path using w.
func WriteToFile(w Writer, path string, stmt common.Statement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, stmt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

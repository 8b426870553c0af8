package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aqlanhadi/extrato/extractor/common"
)

// CSVWriter writes records as comma separated values with a header row.
type CSVWriter struct{}

func (w *CSVWriter) Extension() string   { return ".csv" }
func (w *CSVWriter) ContentType() string { return "text/csv" }

func (w *CSVWriter) Write(out io.Writer, stmt common.Statement) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range stmt.Records {
		row := []string{
			rec.DisplayDate(),
			rec.Description,
			formatAmount(rec.Debit),
			formatAmount(rec.Credit),
			formatAmount(rec.Balance),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// JSONWriter writes the whole statement.
type JSONWriter struct{}

func (w *JSONWriter) Extension() string   { return ".json" }
func (w *JSONWriter) ContentType() string { return "application/json" }

func (w *JSONWriter) Write(out io.Writer, stmt common.Statement) error {
	return json.NewEncoder(out).Encode(stmt)
}

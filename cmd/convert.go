package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aqlanhadi/extrato/extractor"
	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/aqlanhadi/extrato/logger"
	"github.com/aqlanhadi/extrato/writer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	outputDir     string
	outputFormat  string
	statementType string
	textOnly      bool
	recordsOnly   bool
	summaryOnly   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [file or folder]",
	Short: "Converts statement(s)",
	Long: `Converts a statement PDF, or every PDF in a folder, into one output file
per statement. The layout is detected from the statement text unless
--layout names one. Use "-" as the output to print JSON to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	target := args[0]

	ex, err := newExtractor()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("source") {
		ex = ex.ForSource(common.Source(strings.ToLower(viper.GetString("pdf.source"))))
	}

	if textOnly {
		return printText(cmd.OutOrStdout(), ex, target)
	}

	out, err := writer.New(outputFormat)
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	var statements []common.Statement
	if info.IsDir() {
		if statements, err = ex.ProcessPath(ctx, target, statementType); err != nil {
			return err
		}
	} else {
		stmt, err := ex.ProcessFile(ctx, target, statementType)
		if err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}
		statements = append(statements, stmt)
	}

	for _, stmt := range statements {
		for _, w := range stmt.Warnings {
			log.Warn().Str("source", stmt.Source).Msg(w)
		}

		if outputDir == "-" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(extractor.CreateFinalOutput(stmt, recordsOnly, summaryOnly)); err != nil {
				return err
			}
			continue
		}

		path := filepath.Join(outputDir, stmt.Source+out.Extension())
		if err := writer.WriteToFile(out, path, stmt); err != nil {
			return err
		}
		log.Info().Str("file", path).Int("records", len(stmt.Records)).Msg("written")
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records (%s) -> %s\n", stmt.Source, len(stmt.Records), stmt.Layout, path)
	}
	return nil
}

// printText dumps the page lines the parser sees, for writing layout patterns.
func printText(out io.Writer, ex *extractor.Extractor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pages, err := ex.ExtractText(f, common.Source(strings.ToLower(viper.GetString("pdf.source"))))
	if err != nil {
		return err
	}
	for _, p := range pages {
		fmt.Fprintf(out, "--- page %d ---\n", p.Number)
		fmt.Fprintln(out, strings.Join(p.Lines, "\n"))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&outputDir, "output", "o", ".", `folder for the converted files, "-" prints JSON to stdout`)
	flags.StringVarP(&outputFormat, "format", "f", "xlsx", "output format: xlsx, csv or json")
	flags.StringVarP(&statementType, "layout", "l", "", "bank layout to use instead of detection")
	flags.BoolVar(&textOnly, "text-only", false, "print the extracted page text and exit")
	flags.BoolVar(&recordsOnly, "records-only", false, "with -o -, print only the records")
	flags.BoolVar(&summaryOnly, "summary-only", false, "with -o -, print only the totals")

	flags.String("year", "", "year for dates written as dd/mm (default is the current year)")
	flags.String("saldo-mode", "", "balance line filter: exact or substring")
	flags.String("convention", "", "debit/credit convention: supplier or client")
	flags.Int("workers", 0, "pages parsed concurrently")
	flags.String("source", "", "page extraction: text or table")

	viper.BindPFlag("conversion.default_year", flags.Lookup("year"))
	viper.BindPFlag("conversion.saldo_filter_mode", flags.Lookup("saldo-mode"))
	viper.BindPFlag("conversion.convention", flags.Lookup("convention"))
	viper.BindPFlag("conversion.workers", flags.Lookup("workers"))
	viper.BindPFlag("pdf.source", flags.Lookup("source"))
}

package cmd

import (
	"os"

	"github.com/aqlanhadi/extrato/api"
	"github.com/aqlanhadi/extrato/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	servePort     string
	serveTextOnly bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long:  `Starts the HTTP API server that accepts statement PDFs and returns the converted records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Server mode always reports requests
		log := logger.NewJSON(os.Stdout, verbose)
		if !verbose {
			log = log.Level(zerolog.InfoLevel)
		}
		logger.SetDefault(log)

		ex, err := newExtractor()
		if err != nil {
			return err
		}

		cfg := api.DefaultConfig()
		if servePort != "" {
			cfg.Port = ":" + servePort
		}
		cfg.DefaultTextOnly = serveTextOnly
		if cmd.Flags().Changed("format") {
			cfg.DefaultFormat = outputFormat
		}

		return api.New(cfg, ex, log).Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "Port to run the API server on")
	serveCmd.Flags().BoolVar(&serveTextOnly, "text", false, "answer every request with the extracted text")
}

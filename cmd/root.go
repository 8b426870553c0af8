package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aqlanhadi/extrato/config"
	"github.com/aqlanhadi/extrato/extractor"
	"github.com/aqlanhadi/extrato/extractor/layout"
	"github.com/aqlanhadi/extrato/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "extrato [file or folder]",
		Short: "Convert bank statement PDFs into spreadsheets",
		Long: `extrato reads Brazilian bank statement PDFs and writes their transactions
as dated debit/credit records in XLSX, CSV or JSON.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runConvert(cmd, args)
			}
			return cmd.Help()
		},
	}
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.extrato.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogging() {
	logger.SetDefault(logger.New(os.Stderr, verbose))
}

// initConfig layers the embedded defaults, then the config file if one is
// found, then EXTRATO_* environment variables.
func initConfig() {
	if err := config.ReadDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading embedded configuration: %v\n", err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".extrato")
	}

	viper.SetEnvPrefix("extrato")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// newExtractor builds the converter from the current viper settings.
func newExtractor() (*extractor.Extractor, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	registry, err := layout.Load(viper.GetViper(), cfg.Conversion.Indicators)
	if err != nil {
		return nil, err
	}
	return extractor.New(cfg, registry), nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "Lists the configured bank layouts",
	Long:  `Lists the bank layouts in the order detection tries them. Any name can be passed to --layout.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ex, err := newExtractor()
		if err != nil {
			return err
		}
		for _, name := range ex.Layouts() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(layoutsCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pumpd",
		Short: "Smart water pump scheduler",
		Long: `pumpd predicts the daily pump window from sensor readings and
historical usage, adjusts it for weekends and holidays, and switches
the pump when the window opens.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(patternsCmd())
	rootCmd.AddCommand(holidaysCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

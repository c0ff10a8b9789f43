package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "colivingctl",
		Short:        "Administer the co-living building from the command line",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.format, "output", "o", "text", "output format: text or json")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(inventoryCmd(opts))
	rootCmd.AddCommand(reportCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))

	return rootCmd
}

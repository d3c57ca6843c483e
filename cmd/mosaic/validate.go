package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/mosaic/internal/cli"
	"github.com/aretw0/mosaic/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the shell for consistency",
	Long:  `Imports every declared application's manifest and reports missing indexes, hooks or scripts.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		logger, err := cli.NewLogger(cfg)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if err := validator.ValidateShell(context.Background(), cfg, cli.DefaultCatalog(logger)); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Shell is valid! %d applications checked.\n", len(cfg.Applications))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

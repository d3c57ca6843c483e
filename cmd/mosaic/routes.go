package main

import (
	"fmt"
	"os"

	"github.com/aretw0/mosaic/internal/cli"
	"github.com/aretw0/mosaic/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes [url...]",
	Short: "Show which application owns each URL",
	Long: `Resolves the given URLs against the declared applications without loading them.
Exits with status 1 when a URL is claimed by more than one application.`,
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		urls, _ := cmd.Flags().GetStringSlice("url")
		urls = append(urls, args...)

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		rep, err := cli.BuildReport(cfg, urls)
		if err != nil {
			fmt.Printf("Error resolving routes: %v\n", err)
			os.Exit(1)
		}

		switch format {
		case "mermaid":
			fmt.Print(rep.Mermaid())
		case "markdown":
			out, err := tui.Markdown(os.Stdout, rep.Markdown())
			if err != nil {
				fmt.Printf("Error rendering report: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(out)
		default:
			fmt.Printf("Unknown format %q (want markdown or mermaid)\n", format)
			os.Exit(1)
		}

		if rep.HasConflict() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown or mermaid")
	routesCmd.Flags().StringSliceP("url", "u", nil, "URL to resolve (repeatable)")
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
)

// version is set at build time via ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Portfolio site engine backed by Contentful",
	Long: `folio serves a portfolio site rendered from Contentful content.

Configuration is read from an optional YAML file and FOLIO_* / CONTENTFUL_*
environment variables, with the environment taking precedence.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the folio version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "folio %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, fetchCmd, metaCmd, versionCmd)
}

func loadConfig() (folio.SiteConfig, error) {
	return folio.LoadConfig(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

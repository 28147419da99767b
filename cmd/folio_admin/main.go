// Package main provides the folio_admin CLI: the content API server plus
// one-shot maintenance commands for the portfolio document.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	storageArg string
	sqlitePath string
	appArg     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "folio_admin",
	Short: "Portfolio content admin server",
	Long:  "folio_admin stores the portfolio site's content document, serves it over HTTP with an authenticated admin API, and publishes it to the site's GitHub repository.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().StringVar(&storageArg, "storage", "", "Storage driver: sqlite, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "Database file for the sqlite driver")
	rootCmd.PersistentFlags().StringVar(&appArg, "app", "", "Storage key prefix")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

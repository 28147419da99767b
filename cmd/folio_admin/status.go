package main

import (
	"fmt"

	"github.com/jonathan/folio-admin/internal/observability"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the stored content and publish configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.credentials.Load(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "App: %s (storage %s)\n", a.cfg.App, a.cfg.Storage)
	if a.cfg.PublishBranch != "" {
		fmt.Fprintf(out, "Publishes %s on branch %s\n", a.cfg.PublishPath, a.cfg.PublishBranch)
	} else {
		fmt.Fprintf(out, "Publishes %s\n", a.cfg.PublishPath)
	}

	p := observability.NewPrinter(out)
	p.PrintDocumentSummary(a.store.Document())
	p.PrintCredential(c)
	return nil
}

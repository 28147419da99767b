package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/folio-admin/internal/content"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the content document as a JSON backup or source module",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the content document with a JSON backup or source module",
	Long:  "Replace the content document with a backup. Missing fields are filled from the built-in default; a file that cannot be parsed leaves the current content untouched.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in default content and erase the stored copy",
	RunE:  runReset,
}

var (
	exportFormat string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or source")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resetCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var data []byte
	switch exportFormat {
	case "json":
		data, err = a.store.ExportSnapshot()
	case "source":
		data, err = a.store.ExportSourceModule()
	default:
		return fmt.Errorf("unknown format %q (want json or source)", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOut)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	// Source modules are accepted so the published file can be restored directly.
	if strings.EqualFold(filepath.Ext(args[0]), ".js") ||
		bytes.HasPrefix(bytes.TrimSpace(raw), []byte(content.SourceModulePrefix)) {
		raw, err = content.ParseSourceModule(raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.ImportSnapshot(cmd.Context(), raw); err != nil {
		return err
	}
	if err := a.store.LastMirrorError(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0])
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	a.store.Reset(cmd.Context())
	if err := a.store.LastMirrorError(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Content reset to default")
	return nil
}

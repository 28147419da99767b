package main

import (
	"errors"
	"fmt"

	"github.com/jonathan/folio-admin/internal/credential"
	"github.com/jonathan/folio-admin/internal/observability"
	"github.com/jonathan/folio-admin/internal/verify"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Commit the content document to the site repository",
	RunE:  runPublish,
}

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the repository and token used for publishing",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the publish repository and token",
	RunE:  runCredentialSet,
}

var credentialShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the publish repository and masked token",
	RunE:  runCredentialShow,
}

var credentialClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored publish credential",
	RunE:  runCredentialClear,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the deployed site serves the current SEO content",
	Long:  "Fetch the live site and compare its title, description, keywords and hero name against the stored document. The site renders client-side, so --browser loads it through headless Chrome.",
	RunE:  runVerify,
}

var (
	credRepo      string
	credToken     string
	verifyURL     string
	verifyBrowser bool
)

func init() {
	credentialSetCmd.Flags().StringVar(&credRepo, "repo", "", "Repository as owner/repo (required)")
	credentialSetCmd.Flags().StringVar(&credToken, "token", "", "Personal access token with contents write access (required)")
	_ = credentialSetCmd.MarkFlagRequired("repo")
	_ = credentialSetCmd.MarkFlagRequired("token")

	credentialCmd.AddCommand(credentialSetCmd)
	credentialCmd.AddCommand(credentialShowCmd)
	credentialCmd.AddCommand(credentialClearCmd)

	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "Site URL (default from site_url / FOLIO_SITE_URL)")
	verifyCmd.Flags().BoolVar(&verifyBrowser, "browser", false, "Render the page with headless Chrome")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(credentialCmd)
	rootCmd.AddCommand(verifyCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.synchronizer().Publish(cmd.Context())
	observability.NewPrinter(cmd.OutOrStdout()).PrintPublishResult(result)
	if !result.Success {
		return errors.New(result.String())
	}
	return nil
}

func runCredentialSet(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.credentials.Save(cmd.Context(), credential.Credential{Repository: credRepo, Token: credToken}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved credential for %s\n", credRepo)
	return nil
}

func runCredentialShow(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.credentials.Load(cmd.Context())
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintCredential(c)
	return nil
}

func runCredentialClear(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.credentials.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Credential removed")
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	url := verifyURL
	if url == "" {
		url = a.cfg.SiteURL
	}
	if url == "" {
		return fmt.Errorf("--url is required when no site_url is configured")
	}

	report, err := verify.New(verify.Options{Browser: verifyBrowser}).Verify(cmd.Context(), url, a.store.Document())
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintVerifyReport(report)
	if !report.OK() {
		return fmt.Errorf("%d of %d checks failed", len(report.Mismatches), len(report.Checked))
	}
	return nil
}

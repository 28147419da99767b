// Package observability provides formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/credential"
	"github.com/jonathan/folio-admin/internal/publish"
	"github.com/jonathan/folio-admin/internal/verify"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted CLI output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, body string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintDocumentSummary outputs the headline fields and section sizes of doc.
func (p *Printer) PrintDocumentSummary(doc *content.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", doc.Hero.Name))
	sb.WriteString(fmt.Sprintf("Title:     %s\n", doc.Hero.Title))
	sb.WriteString(fmt.Sprintf("SEO title: %s\n", doc.SEO.Title))
	sb.WriteString("\n")

	skills := 0
	for _, c := range doc.Skills {
		skills += len(c.Items)
	}
	sb.WriteString(fmt.Sprintf("Skills:          %d in %d categories\n", skills, len(doc.Skills)))
	sb.WriteString(fmt.Sprintf("Projects:        %d\n", len(doc.Projects)))
	sb.WriteString(fmt.Sprintf("Certifications:  %d\n", len(doc.Certifications)))
	sb.WriteString(fmt.Sprintf("Experience:      %d\n", len(doc.Experience)))
	sb.WriteString(fmt.Sprintf("Education:       %d\n", len(doc.Education)))
	sb.WriteString(fmt.Sprintf("Languages:       %d", len(doc.Languages)))

	if len(doc.Projects) > 0 {
		sb.WriteString("\n\nProjects:")
		count := min(len(doc.Projects), maxItemsToShow)
		for _, proj := range doc.Projects[:count] {
			marker := " "
			if proj.Featured {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("\n %s %s", marker, proj.Title))
		}
		if len(doc.Projects) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(doc.Projects)-maxItemsToShow))
		}
	}

	p.printBox("CONTENT DOCUMENT", sb.String())
}

// PrintCredential outputs the publish target with the token masked.
func (p *Printer) PrintCredential(c credential.Credential) {
	if !c.Complete() {
		p.printBox("PUBLISH CREDENTIAL", "Not configured")
		return
	}
	m := c.Masked()
	p.printBox("PUBLISH CREDENTIAL", fmt.Sprintf("Repository: %s\nToken:      %s", m.Repository, m.Token))
}

// PrintPublishResult outputs the outcome of a publish.
func (p *Printer) PrintPublishResult(r publish.Result) {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("✓ Published\n")
		sb.WriteString(fmt.Sprintf("Commit: %s", r.CommitSHA))
	} else {
		sb.WriteString(fmt.Sprintf("✗ %s", r.Error))
		if r.Status != 0 {
			sb.WriteString(fmt.Sprintf("\nHTTP:   %d", r.Status))
		}
		if r.Detail != "" {
			sb.WriteString(fmt.Sprintf("\nDetail: %s", r.Detail))
		}
	}
	p.printBox("PUBLISH", sb.String())
}

// PrintVerifyReport outputs each check of a deploy verification.
func (p *Printer) PrintVerifyReport(r *verify.Report) {
	if r == nil {
		return
	}

	failed := make(map[string]verify.Mismatch, len(r.Mismatches))
	for _, m := range r.Mismatches {
		failed[m.Field] = m
	}

	var sb strings.Builder
	mode := "http"
	if r.Rendered {
		mode = "browser"
	}
	sb.WriteString(fmt.Sprintf("URL:  %s\nMode: %s\n", r.URL, mode))

	for _, field := range r.Checked {
		m, bad := failed[field]
		if !bad {
			sb.WriteString(fmt.Sprintf("\n✓ %s", field))
			continue
		}
		sb.WriteString(fmt.Sprintf("\n✗ %s", field))
		sb.WriteString(fmt.Sprintf("\n    want: %s", m.Expected))
		sb.WriteString(fmt.Sprintf("\n    got:  %s", m.Actual))
	}
	if len(r.Checked) == 0 {
		sb.WriteString("\nNothing to check: the document has no SEO fields set")
	}

	p.printBox("DEPLOY VERIFICATION", sb.String())
}

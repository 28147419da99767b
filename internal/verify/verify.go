// Package verify checks that the deployed site serves the content that was
// last published.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/fetch"
	log "github.com/sirupsen/logrus"
)

// Checked fields
const (
	FieldTitle       = "seo.title"
	FieldDescription = "seo.description"
	FieldKeywords    = "seo.keywords"
	FieldHeroName    = "hero.name"
)

// Mismatch is one field whose deployed value differs from the document.
type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %q, got %q", m.Field, m.Expected, m.Actual)
}

// Report is the outcome of one verification.
type Report struct {
	URL        string     `json:"url"`
	Rendered   bool       `json:"rendered"`
	Checked    []string   `json:"checked"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every checked field matched.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Fetcher retrieves the page to inspect.
type Fetcher func(ctx context.Context, url string) (*fetch.Result, error)

// Options configures a Verifier.
type Options struct {
	Browser bool          // render with headless Chrome instead of a plain GET
	Timeout time.Duration // per page load
	Fetch   Fetcher       // overrides both modes when set
}

// Verifier compares a deployed page against a document.
type Verifier struct {
	fetch Fetcher
}

// New returns a Verifier for opts.
func New(opts Options) *Verifier {
	f := opts.Fetch
	if f == nil {
		timeout := opts.Timeout
		if opts.Browser {
			f = func(ctx context.Context, url string) (*fetch.Result, error) {
				return fetch.WithBrowser(ctx, url, timeout)
			}
		} else {
			f = func(ctx context.Context, url string) (*fetch.Result, error) {
				return fetch.URL(ctx, url, &fetch.Options{Timeout: timeout})
			}
		}
	}
	return &Verifier{fetch: f}
}

// Verify loads url and reports every field that differs from doc. Only
// fields that are set in doc are checked. The hero name is checked against
// the page text only when the page looks rendered.
func (v *Verifier) Verify(ctx context.Context, url string, doc *content.Document) (*Report, error) {
	page, err := v.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	html, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	report := &Report{URL: url, Rendered: page.Rendered}
	check := func(field, expected, actual string) {
		if expected == "" {
			return
		}
		report.Checked = append(report.Checked, field)
		if normalizeSpace(expected) != normalizeSpace(actual) {
			report.Mismatches = append(report.Mismatches, Mismatch{Field: field, Expected: expected, Actual: actual})
		}
	}

	check(FieldTitle, doc.SEO.Title, html.Find("head title").First().Text())
	check(FieldDescription, doc.SEO.Description, metaContent(html, "description"))
	check(FieldKeywords, doc.SEO.Keywords, metaContent(html, "keywords"))

	text := fetch.MainText(html)
	if name := doc.Hero.Name; name != "" && !fetch.ShouldUseBrowser(text) {
		report.Checked = append(report.Checked, FieldHeroName)
		if !strings.Contains(normalizeSpace(text), normalizeSpace(name)) {
			report.Mismatches = append(report.Mismatches, Mismatch{Field: FieldHeroName, Expected: name, Actual: ""})
		}
	}

	log.WithFields(log.Fields{
		"url":        url,
		"rendered":   page.Rendered,
		"checked":    len(report.Checked),
		"mismatches": len(report.Mismatches),
	}).Info("Verified deployed site")

	return report, nil
}

func metaContent(doc *goquery.Document, name string) string {
	var value string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), name) {
			value = s.AttrOr("content", "")
			return false
		}
		return true
	})
	return value
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

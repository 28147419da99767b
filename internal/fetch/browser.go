package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// MinContentLength is the shortest body text that counts as a rendered page.
// The site is a client-rendered SPA, so its static HTML is mostly an empty root.
const MinContentLength = 40

// ShouldUseBrowser reports whether text is too short to be the rendered site.
func ShouldUseBrowser(extractedText string) bool {
	return len(extractedText) < MinContentLength
}

// settleDelay is how long scripts get to render after the body is ready.
const settleDelay = 2 * time.Second

// WithBrowser renders a page in headless Chrome and returns the resulting
// HTML. Chrome or Chromium must be installed.
func WithBrowser(ctx context.Context, urlStr string, timeout time.Duration) (*Result, error) {
	if _, err := ParseURL(urlStr); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log.WithField("url", urlStr).Debug("Starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
	}

	log.WithFields(log.Fields{"url": urlStr, "bytes": len(html)}).Debug("Rendered page")

	return &Result{
		URL:        urlStr,
		HTML:       html,
		StatusCode: 200,
		Rendered:   true,
	}, nil
}

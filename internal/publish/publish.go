// Package publish commits the current content document to a GitHub repository
// as the site's source module.
package publish

import (
	"fmt"
	"time"
)

// Kind classifies a failed publish.
type Kind string

const (
	KindConfigMissing     Kind = "CONFIG_MISSING"
	KindRemoteReadFailed  Kind = "REMOTE_READ_FAILED"
	KindRemoteWriteFailed Kind = "REMOTE_WRITE_FAILED"
)

// Default option values
const (
	DefaultAPIBase = "https://api.github.com"
	DefaultPath    = "src/data/portfolioData.js"
	DefaultTimeout = 30 * time.Second
)

// CommitDateLayout formats the date in the commit message.
const CommitDateLayout = "January 2, 2006 15:04"

// Result is the outcome of one publish. It is a value, never an error: the
// caller renders it.
type Result struct {
	Success   bool   `json:"success"`
	Error     Kind   `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Status    int    `json:"status,omitempty"`
	CommitSHA string `json:"commit_sha,omitempty"`
}

func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("published (commit %s)", r.CommitSHA)
	}
	if r.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", r.Error, r.Status, r.Detail)
	}
	if r.Detail != "" {
		return fmt.Sprintf("%s: %s", r.Error, r.Detail)
	}
	return string(r.Error)
}

func failure(kind Kind, status int, detail string) Result {
	return Result{Error: kind, Status: status, Detail: detail}
}

// Options configures a Synchronizer. Zero values take the defaults above.
type Options struct {
	APIBase string
	Path    string
	Branch  string
	Timeout time.Duration
	Now     func() time.Time
}

func (o *Options) normalize() {
	if o.APIBase == "" {
		o.APIBase = DefaultAPIBase
	}
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

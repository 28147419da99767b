package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/credential"
	log "github.com/sirupsen/logrus"
)

// DocumentSource supplies the document to publish.
type DocumentSource interface {
	Document() *content.Document
}

// CredentialSource supplies the target repository and token.
type CredentialSource interface {
	Load(ctx context.Context) (credential.Credential, error)
}

// Synchronizer performs the read-then-write against the GitHub contents API.
type Synchronizer struct {
	docs   DocumentSource
	creds  CredentialSource
	client *http.Client
	opts   Options
}

// NewSynchronizer builds a Synchronizer. A nil client uses http.DefaultClient.
func NewSynchronizer(docs DocumentSource, creds CredentialSource, client *http.Client, opts Options) *Synchronizer {
	if client == nil {
		client = http.DefaultClient
	}
	opts.normalize()
	return &Synchronizer{docs: docs, creds: creds, client: client, opts: opts}
}

type contentsResponse struct {
	SHA string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type apiError struct {
	Message string `json:"message"`
}

// Publish serializes the current document and commits it to the configured
// path. It never panics or returns an error; every outcome is a Result.
func (s *Synchronizer) Publish(ctx context.Context) Result {
	cred, err := s.creds.Load(ctx)
	if err != nil {
		return failure(KindConfigMissing, 0, err.Error())
	}
	if !cred.Complete() {
		return failure(KindConfigMissing, 0, "repository and token are required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	module, err := content.SourceModule(s.docs.Document())
	if err != nil {
		return failure(KindRemoteWriteFailed, 0, err.Error())
	}
	encoded := base64.StdEncoding.EncodeToString(module)
	endpoint := s.contentsURL(cred.Repository)

	fields := log.Fields{"repo": cred.Repository, "path": s.opts.Path}

	sha, res := s.readSHA(ctx, endpoint, cred.Token)
	if res != nil {
		log.WithFields(fields).Warnf("Publish read failed: %s", res)
		return *res
	}

	body := putRequest{
		Message: fmt.Sprintf("Update portfolio content (%s)", s.opts.Now().Format(CommitDateLayout)),
		Content: encoded,
		SHA:     sha,
		Branch:  s.opts.Branch,
	}
	result := s.write(ctx, endpoint, cred.Token, body)
	if result.Success {
		log.WithFields(fields).WithField("commit", result.CommitSHA).Info("Published content")
	} else {
		log.WithFields(fields).Warnf("Publish write failed: %s", result)
	}
	return result
}

func (s *Synchronizer) contentsURL(repo string) string {
	base := strings.TrimRight(s.opts.APIBase, "/")
	path := strings.TrimLeft(s.opts.Path, "/")
	u := fmt.Sprintf("%s/repos/%s/contents/%s", base, repo, path)
	if s.opts.Branch != "" {
		u += "?ref=" + s.opts.Branch
	}
	return u
}

// readSHA fetches the current blob sha. A non-nil Result means failure.
func (s *Synchronizer) readSHA(ctx context.Context, endpoint, token string) (string, *Result) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		r := failure(KindRemoteReadFailed, 0, err.Error())
		return "", &r
	}
	setHeaders(req, token)

	resp, err := s.client.Do(req)
	if err != nil {
		r := failure(KindRemoteReadFailed, 0, err.Error())
		return "", &r
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		r := failure(KindRemoteReadFailed, resp.StatusCode, err.Error())
		return "", &r
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r := failure(KindRemoteReadFailed, resp.StatusCode, errorMessage(data, resp.Status))
		return "", &r
	}

	var cr contentsResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		r := failure(KindRemoteReadFailed, resp.StatusCode, "invalid contents response: "+err.Error())
		return "", &r
	}
	return cr.SHA, nil
}

func (s *Synchronizer) write(ctx context.Context, endpoint, token string, body putRequest) Result {
	payload, err := json.Marshal(body)
	if err != nil {
		return failure(KindRemoteWriteFailed, 0, err.Error())
	}

	// The ref query only applies to reads; the branch travels in the body.
	putURL := endpoint
	if i := strings.IndexByte(putURL, '?'); i >= 0 {
		putURL = putURL[:i]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, bytes.NewReader(payload))
	if err != nil {
		return failure(KindRemoteWriteFailed, 0, err.Error())
	}
	setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return failure(KindRemoteWriteFailed, 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(KindRemoteWriteFailed, resp.StatusCode, errorMessage(data, resp.Status))
	}

	var pr putResponse
	_ = json.Unmarshal(data, &pr)
	return Result{Success: true, Status: resp.StatusCode, CommitSHA: pr.Commit.SHA}
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "folio-admin")
}

func errorMessage(body []byte, fallback string) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

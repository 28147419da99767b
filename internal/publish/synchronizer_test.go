package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDocs struct {
	doc *content.Document
}

func (s staticDocs) Document() *content.Document {
	return s.doc.Clone()
}

type staticCreds struct {
	cred credential.Credential
	err  error
}

func (s staticCreds) Load(context.Context) (credential.Credential, error) {
	return s.cred, s.err
}

var fixedNow = func() time.Time {
	return time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
}

// fakeGitHub serves the contents API for one file.
type fakeGitHub struct {
	sha       string
	headSHA   string // when set, a PUT carrying any other sha conflicts
	getStatus int
	putStatus int
	calls     atomic.Int32

	mu       sync.Mutex
	lastPut  putRequest
	lastAuth string
}

func (f *fakeGitHub) recorded() (putRequest, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPut, f.lastAuth
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/owner/site/contents/src/data/portfolioData.js", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		sha := f.sha
		f.mu.Unlock()
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		if f.getStatus != 0 && f.getStatus != http.StatusOK {
			w.WriteHeader(f.getStatus)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"sha": sha})
	})
	mux.HandleFunc("PUT /repos/owner/site/contents/src/data/portfolioData.js", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var put putRequest
		require.NoError(t, json.Unmarshal(body, &put))
		f.mu.Lock()
		f.lastPut = put
		f.mu.Unlock()
		if f.headSHA != "" && put.SHA != f.headSHA {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"src/data/portfolioData.js does not match ` + f.headSHA + `"}`))
			return
		}
		if f.putStatus != 0 && f.putStatus != http.StatusOK {
			w.WriteHeader(f.putStatus)
			_, _ = w.Write([]byte(`{"message":"src/data/portfolioData.js does not match ` + put.SHA + `"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"commit": map[string]string{"sha": "c0ffee"}})
	})
	return mux
}

func newSynchronizer(t *testing.T, gh *fakeGitHub, cred credential.Credential) (*Synchronizer, *content.Document) {
	t.Helper()
	server := httptest.NewServer(gh.handler(t))
	t.Cleanup(server.Close)

	doc := content.Default()
	doc.Hero.Name = "Published Name"
	s := NewSynchronizer(staticDocs{doc: doc}, staticCreds{cred: cred}, server.Client(), Options{
		APIBase: server.URL,
		Now:     fixedNow,
	})
	return s, doc
}

var validCred = credential.Credential{Repository: "owner/site", Token: "tok"}

func TestPublish_ConfigMissing(t *testing.T) {
	tests := []struct {
		name string
		cred credential.Credential
	}{
		{name: "no repository", cred: credential.Credential{Token: "tok"}},
		{name: "no token", cred: credential.Credential{Repository: "owner/site"}},
		{name: "empty", cred: credential.Credential{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := &fakeGitHub{sha: "abc"}
			s, _ := newSynchronizer(t, gh, tt.cred)

			r := s.Publish(context.Background())
			assert.False(t, r.Success)
			assert.Equal(t, KindConfigMissing, r.Error)
			assert.Zero(t, gh.calls.Load(), "no network call is made")
		})
	}
}

func TestPublish_CredentialLoadError(t *testing.T) {
	s := NewSynchronizer(staticDocs{doc: content.Default()}, staticCreds{err: errors.New("disk gone")}, nil, Options{})
	r := s.Publish(context.Background())
	assert.Equal(t, KindConfigMissing, r.Error)
	assert.Contains(t, r.Detail, "disk gone")
}

func TestPublish_Success(t *testing.T) {
	gh := &fakeGitHub{sha: "abc123", headSHA: "abc123"}
	s, doc := newSynchronizer(t, gh, validCred)

	r := s.Publish(context.Background())
	require.True(t, r.Success, r.String())
	assert.Empty(t, r.Error)
	assert.Equal(t, "c0ffee", r.CommitSHA)
	assert.Equal(t, int32(2), gh.calls.Load())

	put, auth := gh.recorded()
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "abc123", put.SHA)
	assert.Equal(t, "Update portfolio content (March 5, 2024 14:30)", put.Message)

	decoded, err := base64.StdEncoding.DecodeString(put.Content)
	require.NoError(t, err)
	want, err := content.SourceModule(doc)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(decoded))
}

func TestPublish_StaleSHA(t *testing.T) {
	// The file moved to t2 after the read returned t1.
	gh := &fakeGitHub{sha: "t1", headSHA: "t2"}
	s, _ := newSynchronizer(t, gh, validCred)

	r := s.Publish(context.Background())
	assert.False(t, r.Success)
	assert.Equal(t, KindRemoteWriteFailed, r.Error)
	assert.Equal(t, http.StatusConflict, r.Status)
	assert.Contains(t, r.Detail, "does not match t2")

	put, _ := gh.recorded()
	assert.Equal(t, "t1", put.SHA, "the write carries the token from the read")

	gh.mu.Lock()
	gh.sha = "t2"
	gh.mu.Unlock()
	r = s.Publish(context.Background())
	assert.True(t, r.Success, r.String())
}

func TestPublish_ReadFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "missing file", status: http.StatusNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := &fakeGitHub{getStatus: tt.status}
			s, _ := newSynchronizer(t, gh, validCred)

			r := s.Publish(context.Background())
			assert.False(t, r.Success)
			assert.Equal(t, KindRemoteReadFailed, r.Error)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, int32(1), gh.calls.Load(), "no write after a failed read")
		})
	}
}

func TestPublish_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	s := NewSynchronizer(staticDocs{doc: content.Default()}, staticCreds{cred: validCred}, nil, Options{APIBase: base})
	r := s.Publish(context.Background())
	assert.Equal(t, KindRemoteReadFailed, r.Error)
	assert.NotEmpty(t, r.Detail)
	assert.Zero(t, r.Status)
}

func TestPublish_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	s := NewSynchronizer(staticDocs{doc: content.Default()}, staticCreds{cred: validCred}, server.Client(), Options{
		APIBase: server.URL,
		Timeout: 50 * time.Millisecond,
	})

	start := time.Now()
	r := s.Publish(context.Background())
	assert.Equal(t, KindRemoteReadFailed, r.Error)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestContentsURL(t *testing.T) {
	s := NewSynchronizer(nil, nil, nil, Options{APIBase: "https://api.example.com/", Path: "/data/site.js", Branch: "main"})
	assert.Equal(t, "https://api.example.com/repos/o/r/contents/data/site.js?ref=main", s.contentsURL("o/r"))

	s = NewSynchronizer(nil, nil, nil, Options{})
	assert.Equal(t, "https://api.github.com/repos/o/r/contents/src/data/portfolioData.js", s.contentsURL("o/r"))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "published (commit abc)", Result{Success: true, CommitSHA: "abc"}.String())
	assert.Equal(t, "CONFIG_MISSING", Result{Error: KindConfigMissing}.String())
	assert.Equal(t, "REMOTE_WRITE_FAILED: HTTP 409: conflict", Result{Error: KindRemoteWriteFailed, Status: 409, Detail: "conflict"}.String())
}

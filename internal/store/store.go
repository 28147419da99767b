// Package store holds the single in-memory ContentDocument and mirrors every
// change to durable storage.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/schemas"
	"github.com/jonathan/folio-admin/internal/storage"
	log "github.com/sirupsen/logrus"
)

// Store is the source of truth for the content document. All mutations are
// serialized; each one replaces the in-memory document, writes the full
// document to storage, then notifies subscribers in subscription order.
//
// A storage failure never rolls back memory: the in-memory document stays
// authoritative for the life of the process.
type Store struct {
	storage storage.Storage
	key     string
	now     func() time.Time

	mu        sync.RWMutex
	doc       *content.Document
	mirrorErr error

	// writeMu serializes mutations through notification. It is taken before
	// mu and held while subscribers run, so subscribers may read the store.
	writeMu sync.Mutex

	subsMu  sync.Mutex
	subs    []subscriber
	nextSub int
	closed  bool
}

type subscriber struct {
	id int
	fn func(*content.Document)
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for project ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store backed by st. The document starts as the default until
// Init loads the stored copy.
func New(st storage.Storage, keys storage.Keys, opts ...Option) *Store {
	s := &Store{
		storage: st,
		key:     keys.Data,
		now:     time.Now,
		doc:     content.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the stored document and merges it onto the default. Read and
// parse failures are logged and the default is used instead.
func (s *Store) Init(ctx context.Context) {
	doc := s.load(ctx)

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

func (s *Store) load(ctx context.Context) *content.Document {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		log.WithFields(log.Fields{"kind": KindStorageReadFailed, "key": s.key}).
			Warnf("Failed to load stored data: %v", err)
		return content.Default()
	}
	if !ok {
		return content.Default()
	}

	doc, err := content.MergeWithDefaults([]byte(raw))
	if err != nil {
		log.WithFields(log.Fields{"kind": KindStorageReadFailed, "key": s.key}).
			Warnf("Failed to parse stored data, using defaults: %v", err)
		return content.Default()
	}
	return doc
}

// Close drops all subscribers. The underlying storage is owned by the caller.
func (s *Store) Close() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = nil
	s.closed = true
}

// Document returns a snapshot of the current document.
func (s *Store) Document() *content.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// LastMirrorError returns the error from the most recent storage write, or
// nil if it succeeded.
func (s *Store) LastMirrorError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirrorErr
}

// UpdateSection replaces the named section wholesale. The new value is
// decoded and validated on its own first; on error nothing changes.
func (s *Store) UpdateSection(ctx context.Context, name string, raw json.RawMessage) error {
	probe := &content.Document{}
	if err := probe.SetSection(name, raw); err != nil {
		return err
	}
	if err := content.Validate(probe); err != nil {
		return err
	}

	return s.mutate(ctx, func(next *content.Document) (*content.Document, error) {
		if err := next.SetSection(name, raw); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// UpdateSetting replaces a single key of the settings section.
func (s *Store) UpdateSetting(ctx context.Context, key string, raw json.RawMessage) error {
	probe := &content.Document{}
	if err := probe.SetSetting(key, raw); err != nil {
		return err
	}
	if err := content.Validate(probe); err != nil {
		return err
	}

	return s.mutate(ctx, func(next *content.Document) (*content.Document, error) {
		if err := next.SetSetting(key, raw); err != nil {
			return nil, err
		}
		return next, nil
	})
}

// AddProject appends p under a fresh id and returns it.
func (s *Store) AddProject(ctx context.Context, p content.Project) (content.Project, error) {
	var added content.Project
	err := s.mutate(ctx, func(next *content.Document) (*content.Document, error) {
		added = next.AddProject(p, s.now())
		return next, nil
	})
	return added, err
}

// Reset restores the compiled-in default and erases the stored copy.
func (s *Store) Reset(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.doc = content.Default()
	if err := s.storage.Delete(context.WithoutCancel(ctx), s.key); err != nil {
		s.mirrorErr = &MirrorError{Kind: KindStorageWriteFailed, Cause: err}
		log.WithFields(log.Fields{"kind": KindStorageWriteFailed, "key": s.key}).
			Warnf("Failed to clear stored data: %v", err)
	} else {
		s.mirrorErr = nil
	}
	s.publishLocked()
}

// ImportSnapshot parses raw as a JSON document, merges it onto the default
// and replaces the current document. Malformed input returns an
// *ImportError and leaves the document untouched.
func (s *Store) ImportSnapshot(ctx context.Context, raw []byte) error {
	if err := schemas.ValidateContent(raw); err != nil {
		return &ImportError{Cause: err}
	}
	doc, err := content.MergeWithDefaults(raw)
	if err != nil {
		return &ImportError{Cause: err}
	}
	if err := content.Validate(doc); err != nil {
		return &ImportError{Cause: err}
	}

	return s.mutate(ctx, func(*content.Document) (*content.Document, error) {
		return doc, nil
	})
}

// ExportSnapshot returns the pretty-printed JSON backup of the current document.
func (s *Store) ExportSnapshot() ([]byte, error) {
	return content.SnapshotJSON(s.Document())
}

// ExportSourceModule returns the current document as a source module.
func (s *Store) ExportSourceModule() ([]byte, error) {
	return content.SourceModule(s.Document())
}

// Subscribe registers fn to receive a snapshot after every mutation. The
// returned func unsubscribes. Subscribers must not mutate the store.
func (s *Store) Subscribe(fn func(*content.Document)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		return func() {}
	}

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// mutate applies fn to a clone of the current document. fn returns the
// document to install; an error leaves the store unchanged.
func (s *Store) mutate(ctx context.Context, fn func(next *content.Document) (*content.Document, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next, err := fn(s.doc.Clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.doc = next
	s.mirrorLocked(ctx)
	s.publishLocked()
	return nil
}

// mirrorLocked writes the full document to storage. Memory has already
// changed, so the write outlives caller cancellation. Caller holds mu.
func (s *Store) mirrorLocked(ctx context.Context) {
	data, err := json.Marshal(s.doc)
	if err == nil {
		err = s.storage.Set(context.WithoutCancel(ctx), s.key, string(data))
	}
	if err != nil {
		s.mirrorErr = &MirrorError{Kind: KindStorageWriteFailed, Cause: err}
		log.WithFields(log.Fields{"kind": KindStorageWriteFailed, "key": s.key}).
			Warnf("Failed to save data: %v", err)
		return
	}
	s.mirrorErr = nil
}

// publishLocked releases mu and notifies subscribers. Caller holds writeMu
// and mu.
func (s *Store) publishLocked() {
	snapshot := s.doc.Clone()
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot.Clone())
	}
}

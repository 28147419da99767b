package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = storage.NewKeys("folio")

// flakyStorage wraps Memory and fails reads or writes on demand.
type flakyStorage struct {
	*storage.Memory
	mu        sync.Mutex
	failGet   bool
	failSet   bool
	setCalls  int
	lastValue string
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{Memory: storage.NewMemory()}
}

func (f *flakyStorage) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errors.New("storage unavailable")
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyStorage) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	f.setCalls++
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	f.mu.Lock()
	f.lastValue = value
	f.mu.Unlock()
	return f.Memory.Set(ctx, key, value)
}

func newTestStore(t *testing.T) (*Store, *flakyStorage) {
	t.Helper()
	st := newFlakyStorage()
	s := New(st, testKeys)
	s.Init(context.Background())
	return s, st
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestInit_EmptyStorageUsesDefault(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, content.Default(), s.Document())
}

func TestInit_MergesStoredCopy(t *testing.T) {
	st := newFlakyStorage()
	require.NoError(t, st.Memory.Set(context.Background(), testKeys.Data, `{"hero":{"name":"Stored"}}`))

	s := New(st, testKeys)
	s.Init(context.Background())

	doc := s.Document()
	assert.Equal(t, "Stored", doc.Hero.Name)
	assert.Equal(t, content.Default().Projects, doc.Projects)
}

func TestInit_ReadFailureFallsBackToDefault(t *testing.T) {
	st := newFlakyStorage()
	st.failGet = true

	s := New(st, testKeys)
	s.Init(context.Background())

	assert.Equal(t, content.Default(), s.Document())
}

func TestInit_CorruptStoredCopyFallsBackToDefault(t *testing.T) {
	st := newFlakyStorage()
	require.NoError(t, st.Memory.Set(context.Background(), testKeys.Data, `{corrupt`))

	s := New(st, testKeys)
	s.Init(context.Background())

	assert.Equal(t, content.Default(), s.Document())
}

func TestUpdateSection_Isolation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	before := s.Document()

	projects := []content.Project{{ID: "p-1", Title: "New"}}
	require.NoError(t, s.UpdateSection(ctx, content.SectionProjects, mustJSON(t, projects)))

	after := s.Document()
	require.Len(t, after.Projects, 1)
	assert.Equal(t, "New", after.Projects[0].Title)

	after.Projects = before.Projects
	assert.Equal(t, before, after, "no other section may change")
}

func TestUpdateSection_MirrorsToStorage(t *testing.T) {
	s, st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSection(ctx, content.SectionSEO, mustJSON(t, content.SEO{Title: "T"})))

	raw, ok, err := st.Memory.Get(ctx, testKeys.Data)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := content.MergeWithDefaults([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, s.Document(), stored)
}

func TestUpdateSection_RejectsInvalidWithoutChange(t *testing.T) {
	s, st := newTestStore(t)
	ctx := context.Background()
	before := s.Document()

	err := s.UpdateSection(ctx, content.SectionCertifications, json.RawMessage(`[{"name":"X","status":"expired"}]`))
	var verr *content.ValidationError
	require.ErrorAs(t, err, &verr)

	err = s.UpdateSection(ctx, "blog", json.RawMessage(`[]`))
	var unknown *content.UnknownSectionError
	require.ErrorAs(t, err, &unknown)

	err = s.UpdateSection(ctx, content.SectionProjects, json.RawMessage(`{}`))
	var decodeErr *content.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	assert.Equal(t, before, s.Document())
	assert.Zero(t, st.setCalls, "rejected updates must not write")
}

func TestUpdateSetting_Isolation(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.Document().Settings

	require.NoError(t, s.UpdateSetting(context.Background(), content.SettingAccentColor, json.RawMessage(`"#ABC"`)))

	after := s.Document().Settings
	assert.Equal(t, "#ABC", after.AccentColor)
	assert.Equal(t, before.AdminPassword, after.AdminPassword)
	assert.Equal(t, before.AnimationsEnabled, after.AnimationsEnabled)
}

func TestUpdateSetting_Invalid(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.Document()

	assert.Error(t, s.UpdateSetting(context.Background(), content.SettingAccentColor, json.RawMessage(`"not-a-color"`)))
	assert.Error(t, s.UpdateSetting(context.Background(), "theme", json.RawMessage(`"dark"`)))
	assert.Equal(t, before, s.Document())
}

func TestWriteFailure_KeepsMemoryState(t *testing.T) {
	s, st := newTestStore(t)
	st.failSet = true

	err := s.UpdateSection(context.Background(), content.SectionHero, json.RawMessage(`{"name":"Offline"}`))
	require.NoError(t, err, "write failures are recovered locally")

	assert.Equal(t, "Offline", s.Document().Hero.Name)

	var mirrorErr *MirrorError
	require.ErrorAs(t, s.LastMirrorError(), &mirrorErr)
	assert.Equal(t, KindStorageWriteFailed, mirrorErr.Kind)

	st.failSet = false
	require.NoError(t, s.UpdateSetting(context.Background(), content.SettingAnimationsEnabled, json.RawMessage(`false`)))
	assert.NoError(t, s.LastMirrorError())
}

func TestReset_Idempotent(t *testing.T) {
	s, st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"Edited"}`)))

	s.Reset(ctx)
	once := s.Document()
	s.Reset(ctx)
	twice := s.Document()

	assert.Equal(t, content.Default(), once)
	assert.Equal(t, once, twice)

	_, ok, err := st.Memory.Get(ctx, testKeys.Data)
	require.NoError(t, err)
	assert.False(t, ok, "reset erases the stored copy")
}

func TestExportImport_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSection(ctx, content.SectionLanguages, json.RawMessage(`[{"name":"Spanish","level":"B2"}]`)))
	want := s.Document()

	exported, err := s.ExportSnapshot()
	require.NoError(t, err)

	other, _ := newTestStore(t)
	require.NoError(t, other.ImportSnapshot(ctx, exported))
	assert.Equal(t, want, other.Document())
}

func TestImportSnapshot_RejectsMalformed(t *testing.T) {
	s, st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"Keep"}`)))
	before := s.Document()
	writes := st.setCalls

	for _, input := range []string{`{not json`, `[]`, `{"projects": {}}`, `{"projects": [{"technologies": [1]}]}`} {
		err := s.ImportSnapshot(ctx, []byte(input))

		var importErr *ImportError
		require.ErrorAs(t, err, &importErr, input)
		assert.Equal(t, KindImportParseFailed, importErr.Kind())
	}

	assert.Equal(t, before, s.Document())
	assert.Equal(t, writes, st.setCalls)
}

func TestImportSnapshot_RejectsInvalidValues(t *testing.T) {
	s, st := newTestStore(t)
	ctx := context.Background()
	before := s.Document()

	for _, input := range []string{
		`{"skills": [{"category": "Backend", "items": [{"name": "Go", "level": 500}]}]}`,
		`{"certifications": [{"name": "X", "status": "bogus"}]}`,
		`{"settings": {"accentColor": "red"}}`,
	} {
		err := s.ImportSnapshot(ctx, []byte(input))

		var importErr *ImportError
		require.ErrorAs(t, err, &importErr, input)
		var verr *content.ValidationError
		assert.ErrorAs(t, err, &verr, input)
	}

	assert.Equal(t, before, s.Document())
	assert.Zero(t, st.setCalls)
}

func TestImportSnapshot_MergesPartial(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.ImportSnapshot(context.Background(), []byte(`{"seo":{"title":"Imported"}}`)))

	doc := s.Document()
	assert.Equal(t, "Imported", doc.SEO.Title)
	assert.Equal(t, content.Default().Hero, doc.Hero)
}

func TestProjectsScenario(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSection(ctx, content.SectionProjects, json.RawMessage(`[]`)))
	require.Empty(t, s.Document().Projects)

	project := `[{"id":"project-1","title":"X","client":"","period":"","role":"","description":"",
		"technologies":["Go"],"tags":["backend"],"featured":true}]`
	require.NoError(t, s.UpdateSection(ctx, content.SectionProjects, json.RawMessage(project)))

	exported, err := s.ExportSnapshot()
	require.NoError(t, err)

	var snapshot struct {
		Projects []content.Project `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(exported, &snapshot))
	require.Len(t, snapshot.Projects, 1)
	assert.Equal(t, "X", snapshot.Projects[0].Title)
	assert.True(t, snapshot.Projects[0].Featured)
	assert.Equal(t, []string{"Go"}, snapshot.Projects[0].Technologies)
}

func TestAddProject_AssignsUniqueID(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	st := newFlakyStorage()
	s := New(st, testKeys, WithClock(func() time.Time { return fixed }))
	s.Init(context.Background())

	a, err := s.AddProject(context.Background(), content.Project{Title: "A"})
	require.NoError(t, err)
	b, err := s.AddProject(context.Background(), content.Project{Title: "B", ID: "ignored"})
	require.NoError(t, err)

	assert.Equal(t, "project-1700000000000", a.ID)
	assert.Equal(t, "project-1700000000000-2", b.ID)
	assert.NotNil(t, a.Technologies)

	projects := s.Document().Projects
	assert.Equal(t, "B", projects[len(projects)-1].Title)
}

func TestExportSourceModule(t *testing.T) {
	s, _ := newTestStore(t)

	src, err := s.ExportSourceModule()
	require.NoError(t, err)

	want, err := content.SourceModule(s.Document())
	require.NoError(t, err)
	assert.Equal(t, want, src)
}

func TestSubscribe_NotifiesInOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var got []string
	cancel := s.Subscribe(func(doc *content.Document) {
		got = append(got, doc.Hero.Name)
		// reading from inside a subscriber must not deadlock
		_ = s.Document()
	})

	require.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"one"}`)))
	require.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"two"}`)))
	s.Reset(ctx)

	cancel()
	require.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"after"}`)))

	assert.Equal(t, []string{"one", "two", content.Default().Hero.Name}, got)
}

func TestSubscribe_FailedMutationDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	s.Subscribe(func(*content.Document) { calls++ })

	_ = s.UpdateSection(context.Background(), "nope", json.RawMessage(`{}`))
	assert.Zero(t, calls)
}

func TestClose_DropsSubscribers(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	s.Subscribe(func(*content.Document) { calls++ })

	s.Close()
	require.NoError(t, s.UpdateSection(context.Background(), content.SectionSEO, json.RawMessage(`{}`)))
	assert.Zero(t, calls)

	cancel := s.Subscribe(func(*content.Document) { calls++ })
	cancel()
}

func TestSubscribe_ReadDuringConcurrentMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	entered := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(*content.Document) {
		once.Do(func() {
			close(entered)
			time.Sleep(100 * time.Millisecond)
			_ = s.Document()
		})
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"first"}`)))
	}()

	<-entered
	second := make(chan struct{})
	go func() {
		defer close(second)
		assert.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"second"}`)))
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("subscriber reading the store blocked behind a pending mutation")
	}
	<-second
	assert.Equal(t, "second", s.Document().Hero.Name)
}

// cancelAwareStorage fails writes whose context is already cancelled.
type cancelAwareStorage struct {
	*storage.Memory
}

func (c cancelAwareStorage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Set(ctx, key, value)
}

func (c cancelAwareStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Delete(ctx, key)
}

func TestMirror_IgnoresCallerCancellation(t *testing.T) {
	st := cancelAwareStorage{Memory: storage.NewMemory()}
	s := New(st, testKeys)
	s.Init(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.UpdateSection(ctx, content.SectionHero, json.RawMessage(`{"name":"Disconnected"}`)))
	assert.NoError(t, s.LastMirrorError())

	raw, ok, err := st.Memory.Get(context.Background(), testKeys.Data)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "Disconnected")

	s.Reset(ctx)
	assert.NoError(t, s.LastMirrorError())
	_, ok, _ = st.Memory.Get(context.Background(), testKeys.Data)
	assert.False(t, ok)
}

func TestConcurrentUpdates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddProject(ctx, content.Project{Title: "p"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	projects := s.Document().Projects
	assert.Len(t, projects, len(content.Default().Projects)+20)

	seen := make(map[string]bool)
	for _, p := range projects {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

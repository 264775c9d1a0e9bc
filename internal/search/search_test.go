package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	semerrors "github.com/semdex/semdex/internal/errors"
	"github.com/semdex/semdex/internal/store"
)

// stubStore returns canned similarity hits and records the scope it was
// asked for.
type stubStore struct {
	store.Store

	hits      []store.SearchResult
	err       error
	gotK      int
	gotMinSim float64
	gotFiles  []string
}

func (s *stubStore) Similar(ctx context.Context, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]store.SearchResult, error) {
	s.gotK = k
	s.gotMinSim = minSimilarity
	s.gotFiles = scopeFiles
	return s.hits, s.err
}

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) Dimensions() int   { return 3 }
func (s *stubEmbedder) ModelName() string { return "stub-model" }
func (s *stubEmbedder) Close() error      { return nil }

func hit(path string, sim float64) store.SearchResult {
	return store.SearchResult{Path: path, Content: "body of " + path, Similarity: sim, StartLine: 1, EndLine: 5}
}

func TestSearch_EmptyQueryIsRejected(t *testing.T) {
	// Given: an engine
	e := NewEngine(&stubStore{}, &stubEmbedder{}, "/ws")

	// When: searching with whitespace only
	_, err := e.Search(context.Background(), "   ", 0.3, 10, Scope{})

	// Then: the typed validation error surfaces without an embedding call
	require.Error(t, err)
	assert.Equal(t, semerrors.ErrCodeQueryEmpty, semerrors.GetCode(err))
}

func TestSearch_PassesScopeFilesToStore(t *testing.T) {
	// Given: a file-scoped query
	st := &stubStore{hits: []store.SearchResult{hit("docs/a.md", 0.9)}}
	em := &stubEmbedder{}
	e := NewEngine(st, em, "/ws")

	// When: searching
	results, err := e.Search(context.Background(), "query", 0.25, 7,
		Scope{Files: []string{"docs/a.md"}})
	require.NoError(t, err)

	// Then: the store saw the limit, floor, and file scope unchanged
	assert.Equal(t, 7, st.gotK)
	assert.InDelta(t, 0.25, st.gotMinSim, 1e-9)
	assert.Equal(t, []string{"docs/a.md"}, st.gotFiles)
	assert.Equal(t, 1, em.calls)
	require.Len(t, results, 1)
}

func TestSearch_BuildsFileURLs(t *testing.T) {
	// Given: a hit below the workspace root
	st := &stubStore{hits: []store.SearchResult{hit("docs/a.md", 0.9)}}
	e := NewEngine(st, &stubEmbedder{}, "/home/user/ws")

	// When: searching
	results, err := e.Search(context.Background(), "query", 0.3, 10, Scope{})
	require.NoError(t, err)

	// Then: the URL is absolute
	require.Len(t, results, 1)
	assert.Equal(t, "file:///home/user/ws/docs/a.md", results[0].URL)
	assert.Equal(t, 1, results[0].StartLine)
	assert.Equal(t, 5, results[0].EndLine)
}

func TestSearch_FolderScopeFiltersResults(t *testing.T) {
	// Given: hits inside and outside a hooks folder at various depths
	st := &stubStore{hits: []store.SearchResult{
		hit("src/hooks/use.md", 0.9),
		hit("lib/hooks/other.md", 0.8),
		hit("docs/intro.md", 0.7),
	}}
	e := NewEngine(st, &stubEmbedder{}, "/ws")

	// When: scoping to the bare folder name
	results, err := e.Search(context.Background(), "query", 0.3, 10,
		Scope{Folders: []string{"hooks"}})
	require.NoError(t, err)

	// Then: only hooks folders at any depth survive
	require.Len(t, results, 2)
	assert.Equal(t, "src/hooks/use.md", results[0].Path)
	assert.Equal(t, "lib/hooks/other.md", results[1].Path)
}

func TestSearch_RootAnchoredFolderScope(t *testing.T) {
	// Given: the same hits
	st := &stubStore{hits: []store.SearchResult{
		hit("src/hooks/use.md", 0.9),
		hit("lib/hooks/other.md", 0.8),
	}}
	e := NewEngine(st, &stubEmbedder{}, "/ws")

	// When: anchoring the folder at the workspace root
	results, err := e.Search(context.Background(), "query", 0.3, 10,
		Scope{Folders: []string{"/src/hooks"}})
	require.NoError(t, err)

	// Then: only the rooted folder matches
	require.Len(t, results, 1)
	assert.Equal(t, "src/hooks/use.md", results[0].Path)
}

func TestSearch_MultipleFoldersUnion(t *testing.T) {
	// Given: hits in two disjoint folders
	st := &stubStore{hits: []store.SearchResult{
		hit("src/hooks/a.md", 0.9),
		hit("docs/guides/b.md", 0.8),
		hit("misc/c.md", 0.7),
	}}
	e := NewEngine(st, &stubEmbedder{}, "/ws")

	// When: scoping to both folders
	results, err := e.Search(context.Background(), "query", 0.3, 10,
		Scope{Folders: []string{"hooks", "guides"}})
	require.NoError(t, err)

	// Then: folder entries combine by union
	require.Len(t, results, 2)
}

func TestSearch_BlankFoldersImposeNoConstraint(t *testing.T) {
	// Given: a scope with only blank folder entries
	st := &stubStore{hits: []store.SearchResult{hit("docs/a.md", 0.9)}}
	e := NewEngine(st, &stubEmbedder{}, "/ws")

	results, err := e.Search(context.Background(), "query", 0.3, 10,
		Scope{Folders: []string{"", "  "}})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_EmbedderFailurePropagates(t *testing.T) {
	// Given: a failing provider
	em := &stubEmbedder{err: semerrors.TransportError("down", nil)}
	e := NewEngine(&stubStore{}, em, "/ws")

	_, err := e.Search(context.Background(), "query", 0.3, 10, Scope{})
	require.Error(t, err)
	assert.Equal(t, semerrors.ErrCodeTransport, semerrors.GetCode(err))
}

func TestSearch_DefaultsNonPositiveLimit(t *testing.T) {
	st := &stubStore{}
	e := NewEngine(st, &stubEmbedder{}, "/ws")

	_, err := e.Search(context.Background(), "query", 0.3, 0, Scope{})
	require.NoError(t, err)
	assert.Equal(t, 10, st.gotK)
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/chunk"
)

func newTestChunkStore(t *testing.T) *ChunkStore {
	t.Helper()
	s, err := NewChunkStore("") // in-memory
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{
			ID:        0,
			Text:      "First chunk of the report.",
			WordCount: 5,
			Metadata: chunk.Metadata{
				PageNumber:       1,
				ExtractionMethod: chunk.MethodPlain,
				DocumentTitle:    "Annual Report",
				Filename:         "report.pdf",
			},
		},
		{
			ID:        1,
			Text:      "Second chunk from a scanned page.",
			WordCount: 6,
			Metadata: chunk.Metadata{
				PageNumber:       2,
				ExtractionMethod: chunk.MethodOCR,
				DocumentTitle:    "Annual Report",
				Filename:         "report.pdf",
			},
		},
	}
}

func TestChunkStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	chunks := sampleChunks()
	ids := []string{"id-0", "id-1"}
	require.NoError(t, s.SaveChunks(ctx, ids, chunks))

	got, err := s.GetChunks(ctx, []string{"id-1", "id-0", "id-missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, chunks[0], got["id-0"])
	assert.Equal(t, chunks[1], got["id-1"])
	assert.Equal(t, chunk.MethodOCR, got["id-1"].Metadata.ExtractionMethod)
}

func TestChunkStore_Count(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.SaveChunks(ctx, []string{"id-0", "id-1"}, sampleChunks()))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChunkStore_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	chunks := sampleChunks()
	require.NoError(t, s.SaveChunks(ctx, []string{"id-0"}, chunks[:1]))

	updated := chunks[0]
	updated.Text = "Replaced text."
	updated.WordCount = 2
	require.NoError(t, s.SaveChunks(ctx, []string{"id-0"}, []chunk.Chunk{updated}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.GetChunks(ctx, []string{"id-0"})
	require.NoError(t, err)
	assert.Equal(t, "Replaced text.", got["id-0"].Text)
}

func TestChunkStore_DeleteByFilename(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	chunks := sampleChunks()
	other := chunks[0]
	other.Metadata.Filename = "other.pdf"
	require.NoError(t, s.SaveChunks(ctx,
		[]string{"id-0", "id-1", "id-2"},
		[]chunk.Chunk{chunks[0], chunks[1], other}))

	deleted, err := s.DeleteByFilename(ctx, "report.pdf")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id-0", "id-1"}, deleted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := newTestChunkStore(t)

	require.NoError(t, s.SaveChunks(ctx, []string{"id-0", "id-1"}, sampleChunks()))
	require.NoError(t, s.Clear(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChunkStore_PersistsToDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chunks.db")

	s, err := NewChunkStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveChunks(ctx, []string{"id-0", "id-1"}, sampleChunks()))
	require.NoError(t, s.Close())

	reopened, err := NewChunkStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChunkStore_LengthMismatch(t *testing.T) {
	s := newTestChunkStore(t)
	err := s.SaveChunks(context.Background(), []string{"id-0"}, sampleChunks())
	assert.Error(t, err)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/docqa/docqa/internal/chunk"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// ChunkStore persists chunk text and metadata in SQLite. The vector and
// lexical indexes hold only IDs; this store is where candidate text and
// citation fields are hydrated from at search time.
type ChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// ChunkRecord is a persisted chunk keyed by its index ID.
type ChunkRecord struct {
	ID    string
	Chunk chunk.Chunk
}

// NewChunkStore opens (or creates) a chunk store at path.
// An empty path creates an in-memory store.
func NewChunkStore(path string) (*ChunkStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create chunk store directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}

	// Single connection: avoids lock contention and keeps :memory:
	// databases from silently splitting per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &ChunkStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize chunk store schema: %w", err)
	}
	return s, nil
}

func (s *ChunkStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id                TEXT PRIMARY KEY,
		chunk_index       INTEGER NOT NULL,
		text              TEXT NOT NULL,
		word_count        INTEGER NOT NULL,
		page_number       INTEGER NOT NULL,
		extraction_method TEXT NOT NULL,
		document_title    TEXT NOT NULL,
		filename          TEXT NOT NULL,
		created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_filename ON chunks(filename);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveChunks persists chunks under their index IDs in one transaction.
// ids and chunks must be aligned by position.
func (s *ChunkStore) SaveChunks(ctx context.Context, ids []string, chunks []chunk.Chunk) error {
	if len(ids) != len(chunks) {
		return fmt.Errorf("ids and chunks length mismatch: %d vs %d", len(ids), len(chunks))
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
			(id, chunk_index, text, word_count, page_number, extraction_method, document_title, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		_, err := stmt.ExecContext(ctx, ids[i], c.ID, c.Text, c.WordCount,
			c.Metadata.PageNumber, string(c.Metadata.ExtractionMethod),
			c.Metadata.DocumentTitle, c.Metadata.Filename)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", ids[i], err)
		}
	}

	return tx.Commit()
}

// GetChunks returns the records for the given IDs. Missing IDs are
// simply absent from the result, not an error.
func (s *ChunkStore) GetChunks(ctx context.Context, ids []string) (map[string]chunk.Chunk, error) {
	if len(ids) == 0 {
		return map[string]chunk.Chunk{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, chunk_index, text, word_count, page_number, extraction_method, document_title, filename
		FROM chunks WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	result := make(map[string]chunk.Chunk, len(ids))
	for rows.Next() {
		var id, method string
		var c chunk.Chunk
		if err := rows.Scan(&id, &c.ID, &c.Text, &c.WordCount,
			&c.Metadata.PageNumber, &method,
			&c.Metadata.DocumentTitle, &c.Metadata.Filename); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		c.Metadata.ExtractionMethod = chunk.Method(method)
		result[id] = c
	}
	return result, rows.Err()
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// DeleteByFilename removes all chunks belonging to a document.
func (s *ChunkStore) DeleteByFilename(ctx context.Context, filename string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM chunks WHERE filename = ?", filename)
	if err != nil {
		return nil, fmt.Errorf("query chunks by filename: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE filename = ?", filename); err != nil {
		return nil, fmt.Errorf("delete chunks by filename: %w", err)
	}
	return ids, nil
}

// Clear removes all chunks.
func (s *ChunkStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

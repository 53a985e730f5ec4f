package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteOptions configures a SQLiteStore.
type SQLiteOptions struct {
	Collection  string  // defaults to "engineering_memory"
	MaxDistance float64 // cosine distance cutoff; 0 disables it
}

// SQLiteStore implements Store using SQLite. Embeddings are stored as
// little-endian float32 blobs and ranked in application memory, which suits
// personal note collections (well under 10K records).
type SQLiteStore struct {
	db          *sql.DB
	collection  string
	maxDistance float64
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// initializes the schema. dbPath may be ":memory:".
func NewSQLiteStore(ctx context.Context, dbPath string, opts SQLiteOptions) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL lets readers proceed during writes; busy_timeout absorbs short lock waits.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if opts.Collection == "" {
		opts.Collection = "engineering_memory"
	}
	s := &SQLiteStore{db: db, collection: opts.Collection, maxDistance: opts.MaxDistance}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary tables if they don't exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id         TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			text       TEXT NOT NULL,
			metadata   TEXT,
			embedding  BLOB NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_collection ON memories(collection);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Add stores rec and its embedding.
func (s *SQLiteStore) Add(ctx context.Context, rec Record, vector []float32) error {
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, collection, text, metadata, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, s.collection, rec.Text, meta, encodeVector(vector), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// Nearest loads every embedding in the collection and ranks them by cosine
// distance to vector.
func (s *SQLiteStore) Nearest(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, COALESCE(metadata, ''), embedding, created_at FROM memories WHERE collection = ? ORDER BY created_at, id`,
		s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h          Hit
			meta       string
			blob       []byte
			createdStr string
		)
		if err := rows.Scan(&h.ID, &h.Text, &meta, &blob, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}

		stored := decodeVector(blob)
		if len(stored) == 0 || len(stored) != len(vector) {
			continue
		}
		h.Distance = cosineDistance(vector, stored)
		if s.maxDistance > 0 && h.Distance > s.maxDistance {
			continue
		}

		if h.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}

	// Stable so equal distances keep insertion order.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits[:min(k, len(hits))], nil
}

// Count returns the number of records in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE collection = ?`, s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)

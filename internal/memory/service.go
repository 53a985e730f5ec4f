package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	adkmemory "google.golang.org/adk/memory"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/context-agent/internal/logging"
)

// searchLimit caps the number of entries returned through the adk memory
// interface.
const searchLimit = 10

// Embedder turns text into a vector. Implementations live in the llm package.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service is the memory adapter used by the rest of the agent: it validates
// input, embeds text and delegates to a Store. It also satisfies the adk
// memory.Service interface so agents launched through adk can search notes.
type Service struct {
	store    Store
	embedder Embedder
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new memory service with the given store and embedder.
func NewService(store Store, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{store: store, embedder: embedder, logger: logging.OrNop(logger), now: time.Now}
}

// Insert stores text with optional scalar metadata and returns the new
// record's id.
func (s *Service) Insert(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if err := validateMetadata(metadata); err != nil {
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to generate embedding: %w", err)
	}

	rec := Record{
		ID:        uuid.NewString(),
		Text:      text,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
	if err := s.store.Add(ctx, rec, vector); err != nil {
		return "", err
	}

	s.logger.Debug("memory saved", zap.String("id", rec.ID), zap.Int("dims", len(vector)))
	return rec.ID, nil
}

// Recall returns up to k nearest records, most similar first.
func (s *Service) Recall(ctx context.Context, text string, k int) ([]Hit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if k <= 0 {
		return nil, ErrInvalidLimit
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	hits, err := s.store.Nearest(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("memory query", zap.Int("k", k), zap.Int("hits", len(hits)))
	return hits, nil
}

// Query is Recall reduced to the record texts.
func (s *Service) Query(ctx context.Context, text string, k int) ([]string, error) {
	hits, err := s.Recall(ctx, text, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	return texts, nil
}

// Count reports how many records the underlying store holds.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// AddSession implements memory.Service. Memories are only written on an
// explicit save, so finished sessions are not ingested.
func (s *Service) AddSession(_ context.Context, sess session.Session) error {
	s.logger.Debug("session not ingested", zap.String("session", sess.ID()))
	return nil
}

// Search implements memory.Service interface.
// It performs a vector similarity search based on the query and returns memory entries.
func (s *Service) Search(ctx context.Context, req *adkmemory.SearchRequest) (*adkmemory.SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return &adkmemory.SearchResponse{Memories: []adkmemory.Entry{}}, nil
	}

	hits, err := s.Recall(ctx, req.Query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}

	memories := make([]adkmemory.Entry, 0, len(hits))
	for _, h := range hits {
		// genai.Text returns []*Content, we need the first one
		memories = append(memories, adkmemory.Entry{
			Content:   genai.Text(h.Text)[0],
			Author:    "user",
			Timestamp: h.CreatedAt,
		})
	}

	return &adkmemory.SearchResponse{Memories: memories}, nil
}

func validateMetadata(m map[string]any) error {
	for k, v := range m {
		switch v.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
		default:
			return fmt.Errorf("%w: key %q has type %T", ErrInvalidMetadata, k, v)
		}
	}
	return nil
}

var _ adkmemory.Service = (*Service)(nil)

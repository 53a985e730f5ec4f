package memory

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Store defines the vector store contract. A Store is bound to a single
// named collection when it is opened.
type Store interface {
	// Add persists rec with its embedding. The write is visible to every
	// subsequent Nearest call on the same store.
	Add(ctx context.Context, rec Record, vector []float32) error

	// Nearest returns up to k records ordered by ascending cosine distance
	// to vector. Records whose distance exceeds the store's cutoff, or whose
	// embedding has a different dimension, are skipped.
	Nearest(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// encodeVector converts a float32 slice to a byte slice for storage.
// Each float32 is encoded as 4 bytes in little-endian format.
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts a byte slice back to a float32 slice.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosineDistance is 1 - cosine similarity. A zero vector has similarity 0
// to everything.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func encodeMetadata(m map[string]any) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeMetadata(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}

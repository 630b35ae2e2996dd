package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/internal/types"
)

const (
	graphFile  = "index.hnsw"
	chunksFile = "chunks.json"
)

type FileConfig struct {
	Dir       string // collection directory
	VectorDim int
	M         int
	EfSearch  int
}

// FileStore is a vector index persisted under a collection directory:
// an HNSW graph plus a chunk sidecar, marked complete by the manifest.
// Entries are write-once; at serve time the store is read-only and
// shared across sessions.
type FileStore struct {
	mu      sync.RWMutex
	config  FileConfig
	graph   *hnsw.Graph[uint64]
	chunks  map[uint64]models.Chunk
	nextKey uint64
	closed  bool
}

type storedChunk struct {
	Key   uint64       `json:"key"`
	Chunk models.Chunk `json:"chunk"`
}

// NewFileStore creates an empty store for building a new collection.
func NewFileStore(config FileConfig) *FileStore {
	if config.M == 0 {
		config.M = 16
	}
	if config.EfSearch == 0 {
		config.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = config.M
	graph.EfSearch = config.EfSearch
	graph.Ml = 0.25

	return &FileStore{
		config: config,
		graph:  graph,
		chunks: make(map[uint64]models.Chunk),
	}
}

// OpenFileStore loads a previously persisted collection. It fails when
// the collection was never built (no manifest) or its files are gone.
func OpenFileStore(config FileConfig) (*FileStore, error) {
	if !IndexExists(config.Dir) {
		return nil, fmt.Errorf("collection %s has not been built", config.Dir)
	}

	s := NewFileStore(config)

	if err := s.loadChunks(); err != nil {
		return nil, fmt.Errorf("failed to load chunk sidecar: %w", err)
	}

	file, err := os.Open(filepath.Join(config.Dir, graphFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	// Import needs an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return nil, fmt.Errorf("failed to import graph: %w", err)
	}

	return s, nil
}

func (s *FileStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for _, v := range vectors {
		if s.config.VectorDim != 0 && len(v) != s.config.VectorDim {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.config.VectorDim, len(v))
		}
	}

	for i, chunk := range chunks {
		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.chunks[key] = chunk
	}

	return nil
}

func (s *FileStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if s.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := s.graph.Search(normalized, k)

	results := make([]models.SearchResult, 0, len(nodes))
	for _, node := range nodes {
		chunk, ok := s.chunks[node.Key]
		if !ok {
			continue
		}

		distance := s.graph.Distance(normalized, node.Value)
		results = append(results, models.SearchResult{
			Chunk:  chunk,
			Score:  1 - distance/2,
			Vector: node.Value,
		})
	}

	return results, nil
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}
	return len(s.chunks), nil
}

// Persist writes the graph and the chunk sidecar. It does not write
// the manifest; the indexer does that once the whole build succeeded.
func (s *FileStore) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if err := os.MkdirAll(s.config.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	path := filepath.Join(s.config.Dir, graphFile)
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	return s.saveChunks()
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

func (s *FileStore) saveChunks() error {
	stored := make([]storedChunk, 0, len(s.chunks))
	for key, chunk := range s.chunks {
		stored = append(stored, storedChunk{Key: key, Chunk: chunk})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	path := filepath.Join(s.config.Dir, chunksFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write chunks: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) loadChunks() error {
	data, err := os.ReadFile(filepath.Join(s.config.Dir, chunksFile))
	if err != nil {
		return err
	}

	var stored []storedChunk
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	s.chunks = make(map[uint64]models.Chunk, len(stored))
	for _, sc := range stored {
		s.chunks[sc.Key] = sc.Chunk
		if sc.Key >= s.nextKey {
			s.nextKey = sc.Key + 1
		}
	}
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

var _ types.VectorStore = (*FileStore)(nil)

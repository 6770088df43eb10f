// Package storage keeps uploaded inputs in memory until a session
// ingests them. Nothing touches the filesystem; every input disappears
// when the process exits.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/log-inspector/backend/internal/models"
)

// Store defines the interface for input registration and retrieval.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	GetData(id string) ([]byte, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	SaveChunk(uploadID string, chunkIndex int, r io.Reader) error
	CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error)
}

// MemoryStore implements Store with everything held in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	maxBytes int64
	inputs   map[string]*input
	chunks   map[string]map[int][]byte
}

type input struct {
	info *models.FileInfo
	data []byte
}

// NewMemoryStore creates a registry. maxBytes caps the size of any
// single registered input; zero or negative means no cap.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		maxBytes: maxBytes,
		inputs:   make(map[string]*input),
		chunks:   make(map[string]map[int][]byte),
	}
}

// Save registers a new input from a reader.
func (s *MemoryStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := s.readCapped(r)
	if err != nil {
		return nil, err
	}
	return s.register(name, data), nil
}

func (s *MemoryStore) readCapped(r io.Reader) ([]byte, error) {
	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if s.maxBytes > 0 && int64(buf.Len()) > s.maxBytes {
		return nil, fmt.Errorf("input exceeds size limit of %d bytes", s.maxBytes)
	}
	return buf.Bytes(), nil
}

func (s *MemoryStore) register(name string, data []byte) *models.FileInfo {
	info := &models.FileInfo{
		ID:         uuid.New().String(),
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Status:     "uploaded",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs[info.ID] = &input{info: info, data: data}

	return info
}

// Get retrieves input metadata by ID.
func (s *MemoryStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.inputs[id]
	if !ok {
		return nil, fmt.Errorf("input not found: %s", id)
	}
	return in.info, nil
}

// GetData returns the raw bytes of a registered input.
func (s *MemoryStore) GetData(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.inputs[id]
	if !ok {
		return nil, fmt.Errorf("input not found: %s", id)
	}
	return in.data, nil
}

// List returns the most recently registered inputs.
func (s *MemoryStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.FileInfo
	for _, in := range s.inputs {
		list = append(list, in.info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete releases a registered input.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inputs[id]; !ok {
		return fmt.Errorf("input not found: %s", id)
	}
	delete(s.inputs, id)
	return nil
}

// SaveChunk stores one piece of a chunked upload.
func (s *MemoryStore) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	data, err := s.readCapped(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chunks[uploadID] == nil {
		s.chunks[uploadID] = make(map[int][]byte)
	}
	s.chunks[uploadID][chunkIndex] = data
	return nil
}

// CompleteChunkedUpload assembles stored chunks into one input and
// discards the chunk staging area.
func (s *MemoryStore) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error) {
	s.mu.Lock()
	parts, ok := s.chunks[uploadID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("unknown upload: %s", uploadID)
	}
	delete(s.chunks, uploadID)
	s.mu.Unlock()

	var buf bytes.Buffer
	for i := 0; i < totalChunks; i++ {
		chunk, ok := parts[i]
		if !ok {
			return nil, fmt.Errorf("missing chunk %d of %d", i, totalChunks)
		}
		buf.Write(chunk)
	}
	if s.maxBytes > 0 && int64(buf.Len()) > s.maxBytes {
		return nil, fmt.Errorf("input exceeds size limit of %d bytes", s.maxBytes)
	}

	return s.register(name, buf.Bytes()), nil
}

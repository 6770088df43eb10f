// mock_storage.go - Mock input registry for testing
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/storage"
)

// MockStorage implements storage.Store for testing
type MockStorage struct {
	mu     sync.RWMutex
	inputs map[string]*models.FileInfo
	data   map[string][]byte
	chunks map[string]map[int][]byte
}

// NewMockStorage creates a new empty mock registry
func NewMockStorage() *MockStorage {
	return &MockStorage{
		inputs: make(map[string]*models.FileInfo),
		data:   make(map[string][]byte),
		chunks: make(map[string]map[int][]byte),
	}
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(generateTestID(), name, data), nil
}

func (m *MockStorage) addLocked(id, name string, data []byte) *models.FileInfo {
	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Status:     "uploaded",
	}
	m.inputs[id] = info
	m.data[id] = data
	return info
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.inputs[id]
	if !ok {
		return nil, errors.New("input not found")
	}
	return info, nil
}

func (m *MockStorage) GetData(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[id]
	if !ok {
		return nil, errors.New("input not found")
	}
	return data, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*models.FileInfo
	for _, info := range m.inputs {
		list = append(list, info)
		if limit > 0 && len(list) >= limit {
			break
		}
	}
	return list, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.inputs[id]; !ok {
		return errors.New("input not found")
	}
	delete(m.inputs, id)
	delete(m.data, id)
	return nil
}

func (m *MockStorage) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[uploadID] == nil {
		m.chunks[uploadID] = make(map[int][]byte)
	}
	m.chunks[uploadID][chunkIndex] = data
	return nil
}

func (m *MockStorage) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts, ok := m.chunks[uploadID]
	if !ok {
		return nil, errors.New("upload not found")
	}

	var buf bytes.Buffer
	for i := 0; i < totalChunks; i++ {
		chunk, ok := parts[i]
		if !ok {
			return nil, errors.New("missing chunk")
		}
		buf.Write(chunk)
	}
	delete(m.chunks, uploadID)

	return m.addLocked(generateTestID(), name, buf.Bytes()), nil
}

// Test helper methods

// AddInput registers an input under a fixed ID
func (m *MockStorage) AddInput(id, name string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(id, name, data)
}

// InputCount returns the number of registered inputs
func (m *MockStorage) InputCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.inputs)
}

var (
	testIDCounter int
	testIDMutex   sync.Mutex
)

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}

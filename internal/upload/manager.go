// Package upload runs async post-processing for chunked uploads:
// assembling chunks into one input and inflating transport-gzip before
// the input is handed to a session.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/storage"
)

// Status represents the upload processing status.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusAssembling    Status = "assembling"
	StatusDecompressing Status = "decompressing"
	StatusComplete      Status = "complete"
	StatusError         Status = "error"
)

// Job represents an async upload processing job.
type Job struct {
	ID             string           `json:"id"`
	UploadID       string           `json:"uploadId"`
	FileName       string           `json:"fileName"`
	TotalChunks    int              `json:"totalChunks"`
	OriginalSize   int64            `json:"originalSize"`
	CompressedSize int64            `json:"compressedSize"`
	Encoding       string           `json:"encoding"`
	Status         Status           `json:"status"`
	Progress       float64          `json:"progress"`
	Stage          string           `json:"stage"`
	FileInfo       *models.FileInfo `json:"fileInfo,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
}

// Manager handles async upload processing.
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	store storage.Store
}

// NewManager creates a new upload processing manager.
func NewManager(store storage.Store) *Manager {
	return &Manager{
		jobs:  make(map[string]*Job),
		store: store,
	}
}

// StartJob begins async processing of a completed chunked upload.
func (m *Manager) StartJob(uploadID, fileName string, totalChunks int, originalSize, compressedSize int64, encoding string) *Job {
	job := &Job{
		ID:             uuid.New().String(),
		UploadID:       uploadID,
		FileName:       fileName,
		TotalChunks:    totalChunks,
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
		Encoding:       encoding,
		Status:         StatusProcessing,
		Stage:          "preparing",
		CreatedAt:      time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snap := *job
	m.mu.Unlock()

	go m.processJob(job)

	return &snap
}

// GetJob retrieves a snapshot of a job by ID. The processing goroutine
// keeps mutating the stored job under the manager's lock, so callers
// get a copy they can read and marshal freely.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snap := *job
	return &snap, true
}

func (m *Manager) processJob(job *Job) {
	fmt.Printf("[UploadJob %s] Starting processing: %s\n", job.ID[:8], job.FileName)

	m.updateJobStatus(job, StatusAssembling, "assembling chunks")

	info, err := m.store.CompleteChunkedUpload(job.UploadID, job.FileName, job.TotalChunks)
	if err != nil {
		m.markJobError(job, fmt.Sprintf("failed to assemble chunks: %v", err))
		return
	}
	fmt.Printf("[UploadJob %s] Chunks assembled: %s (%d bytes)\n", job.ID[:8], info.ID, info.Size)

	// Transport gzip is applied by clients to speed up the upload
	// itself. It is stripped here so the registered input carries the
	// payload as the client had it on disk.
	if job.Encoding == "gzip" || job.Encoding == "binary-gzip" {
		m.updateJobStatus(job, StatusDecompressing, "decompressing upload")

		inflated, err := m.inflate(info.ID)
		if err != nil {
			// Not fatal. The payload may already be plain text, or an
			// archive the load pipeline can still handle.
			fmt.Printf("[UploadJob %s] Warning: could not decompress %s: %v\n", job.ID[:8], info.ID, err)
		} else {
			if job.OriginalSize > 0 && int64(len(inflated)) != job.OriginalSize {
				m.markJobError(job, fmt.Sprintf(
					"decompressed size mismatch: got %d bytes, expected %d", len(inflated), job.OriginalSize))
				return
			}
			replaced, err := m.replace(info, inflated)
			if err != nil {
				m.markJobError(job, err.Error())
				return
			}
			info = replaced
			fmt.Printf("[UploadJob %s] Decompressed to %d bytes\n", job.ID[:8], info.Size)
		}
	}

	m.mu.Lock()
	job.FileInfo = info
	job.Status = StatusComplete
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
	m.mu.Unlock()

	fmt.Printf("[UploadJob %s] Processing complete: %s (%d bytes)\n", job.ID[:8], info.ID, info.Size)
}

func (m *Manager) inflate(inputID string) ([]byte, error) {
	data, err := m.store.GetData(inputID)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return nil, fmt.Errorf("not a gzip stream")
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return inflated, nil
}

// replace re-registers an input under its original name with new bytes.
func (m *Manager) replace(info *models.FileInfo, data []byte) (*models.FileInfo, error) {
	replaced, err := m.store.Save(info.Name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("registering decompressed input: %w", err)
	}
	if err := m.store.Delete(info.ID); err != nil {
		return nil, err
	}
	return replaced, nil
}

func (m *Manager) updateJobStatus(job *Job, status Status, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage
	switch status {
	case StatusAssembling:
		job.Progress = 30
	case StatusDecompressing:
		job.Progress = 70
	}
}

func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
	fmt.Printf("[UploadJob %s] Error: %s\n", job.ID[:8], errMsg)
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status != StatusComplete && job.Status != StatusError {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

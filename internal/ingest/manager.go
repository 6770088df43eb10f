// Package ingest orchestrates the load pipeline for viewer sessions:
// archive traversal, line reconstruction and record parsing run in a
// background goroutine in bounded chunks, with cancellation checked
// between chunks and an all-or-nothing commit into the session's record
// store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/log-inspector/backend/internal/archive"
	"github.com/log-inspector/backend/internal/models"
	"github.com/log-inspector/backend/internal/parser"
	"github.com/log-inspector/backend/internal/store"
)

// MaxSessions limits concurrent sessions to prevent memory exhaustion.
const MaxSessions = 16

// ErrIngestInProgress is returned when a second ingest is started while
// one is still running for the same session. Stores are single-writer.
var ErrIngestInProgress = errors.New("an ingestion batch is already running for this session")

// ErrTooManySessions is returned when the session limit is reached and
// no idle session can be evicted.
var ErrTooManySessions = errors.New("session limit reached")

// Options configures the pipeline shared by all sessions of a manager.
type Options struct {
	// Grammars is the active ordered grammar list.
	Grammars []parser.Grammar
	// Normalizer resolves timestamps with missing year/zone info.
	Normalizer *parser.Normalizer
	// MaxArchiveBytes caps the total decompressed size of one input.
	MaxArchiveBytes int64
	// ChunkLines is how many logical lines are parsed between progress
	// updates and cancellation checks.
	ChunkLines int
}

// SessionState holds one session's metadata and record store.
type SessionState struct {
	Session      *models.IngestSession
	Store        *store.RecordStore
	LastAccessed time.Time

	cancel context.CancelFunc
}

// Manager owns the active viewer sessions. Each session has its own
// record store; sessions never share state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
	opts     Options
}

// NewManager creates a session manager with the given pipeline options.
func NewManager(opts Options) *Manager {
	if len(opts.Grammars) == 0 {
		opts.Grammars = parser.DefaultGrammars()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = parser.NewNormalizer(0, nil)
	}
	if opts.MaxArchiveBytes <= 0 {
		opts.MaxArchiveBytes = 512 * 1024 * 1024
	}
	if opts.ChunkLines <= 0 {
		opts.ChunkLines = 20000
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		opts:     opts,
	}
}

// CreateSession registers a new empty session and returns it.
func (m *Manager) CreateSession() (*models.IngestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= MaxSessions {
		if !m.evictIdleLocked() {
			return nil, ErrTooManySessions
		}
	}

	id := uuid.New().String()
	state := &SessionState{
		Session:      models.NewIngestSession(id),
		Store:        store.New(),
		LastAccessed: time.Now(),
	}
	m.sessions[id] = state
	return snapshotSession(state.Session), nil
}

// evictIdleLocked removes the oldest session that has no running ingest.
func (m *Manager) evictIdleLocked() bool {
	var oldest *SessionState
	var oldestID string
	for id, state := range m.sessions {
		if ingestRunning(state.Session.Status) {
			continue
		}
		if oldest == nil || state.LastAccessed.Before(oldest.LastAccessed) {
			oldest, oldestID = state, id
		}
	}
	if oldest == nil {
		return false
	}
	delete(m.sessions, oldestID)
	return true
}

func ingestRunning(status models.IngestStatus) bool {
	return status == models.IngestStatusLoading || status == models.IngestStatusParsing
}

// GetSession returns a snapshot of the session metadata.
func (m *Manager) GetSession(id string) (*models.IngestSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return snapshotSession(state.Session), true
}

// Store returns the record store owned by a session.
func (m *Manager) Store(id string) (*store.RecordStore, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.Store, true
}

// TouchSession refreshes the keep-alive clock for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteSession removes a session, cancelling any running ingest.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	if state.cancel != nil {
		state.cancel()
	}
	delete(m.sessions, id)
	return true
}

// CleanupOldSessions drops sessions idle for longer than maxAge.
// Returns the number removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, state := range m.sessions {
		if ingestRunning(state.Session.Status) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartIngest begins ingesting an input buffer into the session's store
// in a background goroutine. Only one batch may run per session at a
// time; the partial state of a cancelled or failed batch never reaches
// the store.
func (m *Manager) StartIngest(sessionID, inputID, inputName string, data []byte) (*models.IngestSession, error) {
	m.mu.Lock()
	state, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if ingestRunning(state.Session.Status) {
		m.mu.Unlock()
		return nil, ErrIngestInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	state.LastAccessed = time.Now()
	state.Session.Status = models.IngestStatusLoading
	state.Session.Progress = 0
	state.Session.Error = ""
	state.Session.InputID = inputID
	state.Session.InputName = inputName
	snap := snapshotSession(state.Session)
	m.mu.Unlock()

	go m.runIngest(ctx, sessionID, inputName, data)

	return snap, nil
}

// CancelIngest abandons a running ingestion batch. The store keeps only
// previously committed batches.
func (m *Manager) CancelIngest(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok || state.cancel == nil || !ingestRunning(state.Session.Status) {
		return false
	}
	state.cancel()
	return true
}

func (m *Manager) runIngest(ctx context.Context, sessionID, inputName string, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Ingest %s] PANIC recovered: %v\n", shortID(sessionID), r)
			m.failIngest(sessionID, fmt.Sprintf("ingest panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Ingest %s] Loading %s (%d bytes)\n", shortID(sessionID), inputName, len(data))

	entries, warnings, err := archive.Load(inputName, data, m.opts.MaxArchiveBytes)
	if err != nil {
		m.failIngest(sessionID, err.Error())
		return
	}

	m.updateProgress(sessionID, models.IngestStatusParsing, 5)

	dispatcher := parser.NewDispatcher(m.opts.Grammars, m.opts.Normalizer)
	reconstructor := parser.NewReconstructor(m.opts.Grammars)

	var totalBytes int64
	for _, e := range entries {
		totalBytes += int64(len(e.Data))
	}

	// Records are staged here and committed in one batch at the end, so
	// a cancelled or failed run leaves the store untouched.
	var staged []models.LogRecord
	type sourceMeta struct{ name, encoding string }
	sources := make([]sourceMeta, 0, len(entries))

	var processedBytes int64
	for _, entry := range entries {
		lines, encoding := reconstructor.Reconstruct(entry.Name, entry.Data)
		sources = append(sources, sourceMeta{entry.Name, encoding})

		for chunkStart := 0; chunkStart < len(lines); chunkStart += m.opts.ChunkLines {
			if err := ctx.Err(); err != nil {
				fmt.Printf("[Ingest %s] Cancelled after %d records staged\n", shortID(sessionID), len(staged))
				m.updateProgress(sessionID, models.IngestStatusCancelled, 0)
				return
			}

			chunkEnd := min(chunkStart+m.opts.ChunkLines, len(lines))
			for _, line := range lines[chunkStart:chunkEnd] {
				staged = append(staged, dispatcher.Parse(line))
			}

			entryFraction := float64(chunkEnd) / float64(len(lines))
			progress := 5 + (float64(processedBytes)+entryFraction*float64(len(entry.Data)))*90/float64(max(totalBytes, 1))
			m.updateProgress(sessionID, models.IngestStatusParsing, progress)
		}
		processedBytes += int64(len(entry.Data))
	}

	if err := ctx.Err(); err != nil {
		m.updateProgress(sessionID, models.IngestStatusCancelled, 0)
		return
	}

	m.mu.Lock()
	state, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	recordStore := state.Store
	m.mu.Unlock()

	for _, src := range sources {
		recordStore.RegisterSource(src.name, src.encoding)
	}
	recordStore.AddWarnings(warnings)
	recordStore.Ingest(staged)

	elapsed := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok = m.sessions[sessionID]
	if !ok {
		return
	}
	state.Session.Status = models.IngestStatusComplete
	state.Session.Progress = 100
	state.Session.RecordCount = recordStore.Len()
	state.Session.ProcessingTimeMs = elapsed
	state.Session.Warnings = append(state.Session.Warnings, warnings...)
	state.cancel = nil

	fmt.Printf("[Ingest %s] Complete: %d records from %d files in %dms (%d warnings)\n",
		shortID(sessionID), len(staged), len(entries), elapsed, len(warnings))
}

func (m *Manager) updateProgress(sessionID string, status models.IngestStatus, progress float64) {
	if progress > 95 {
		progress = 95
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.Session.Status = status
	if status == models.IngestStatusCancelled {
		state.Session.Progress = 0
		state.cancel = nil
	} else {
		state.Session.Progress = progress
	}
}

func (m *Manager) failIngest(sessionID, reason string) {
	fmt.Printf("[Ingest %s] ERROR: %s\n", shortID(sessionID), reason)
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.Session.Status = models.IngestStatusError
	state.Session.Error = reason
	state.cancel = nil
}

func snapshotSession(s *models.IngestSession) *models.IngestSession {
	copied := *s
	copied.Warnings = append([]models.LoadWarning(nil), s.Warnings...)
	return &copied
}

// shortID safely truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

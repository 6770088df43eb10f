// Package store holds parsed log records for one viewer session: an
// append-only, in-memory, indexed collection supporting filtered and
// paginated queries. Nothing is persisted; the store dies with the
// session.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/log-inspector/backend/internal/models"
)

// QueryPage is one bounded window of query results.
type QueryPage struct {
	IDs []models.RecordID `json:"ids"`
	// Next is the opaque continuation cursor; empty when the result set
	// is exhausted.
	Next string `json:"next,omitempty"`
	// Total is the number of records matching the criteria.
	Total int `json:"total"`
}

// RecordStore is an ordered, indexed collection of log records.
// Single-writer, multi-reader: Ingest batches are serialized, queries
// see only fully committed batches. Record ids increase monotonically
// and are never reused.
type RecordStore struct {
	mu      sync.RWMutex
	records []models.LogRecord

	sourceOrder []string
	sources     map[string]*models.SourceSummary
	warnings    []models.LoadWarning

	structured int
	bySeverity map[models.Severity]int
	earliest   *time.Time
	latest     *time.Time

	// tsOrder caches the timestamp-sorted permutation; rebuilt lazily
	// when records were appended since the last build.
	tsOrder []models.RecordID
}

// New creates an empty record store.
func New() *RecordStore {
	return &RecordStore{
		sources:    make(map[string]*models.SourceSummary),
		bySeverity: make(map[models.Severity]int),
	}
}

// RegisterSource records metadata for a loaded source file. Sources keep
// their load order in the summary.
func (s *RecordStore) RegisterSource(name, encoding string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[name]; !ok {
		s.sourceOrder = append(s.sourceOrder, name)
		s.sources[name] = &models.SourceSummary{Name: name, Encoding: encoding}
	}
}

// AddWarnings appends load warnings to the session summary.
func (s *RecordStore) AddWarnings(warnings []models.LoadWarning) {
	if len(warnings) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, warnings...)
}

// Ingest appends a batch of records atomically, preserving order, and
// returns the assigned ids. Readers never observe a partial batch.
func (s *RecordStore) Ingest(batch []models.LogRecord) []models.RecordID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]models.RecordID, len(batch))
	for i := range batch {
		rec := batch[i]
		rec.ID = models.RecordID(len(s.records) + 1)
		s.records = append(s.records, rec)
		ids[i] = rec.ID

		s.bySeverity[rec.Severity]++
		if rec.Structured {
			s.structured++
		}
		if summary, ok := s.sources[rec.Source]; ok {
			summary.Records++
		} else {
			s.sourceOrder = append(s.sourceOrder, rec.Source)
			s.sources[rec.Source] = &models.SourceSummary{Name: rec.Source, Records: 1}
		}
		if rec.Timestamp != nil {
			ts := *rec.Timestamp
			if s.earliest == nil || ts.Before(*s.earliest) {
				s.earliest = &ts
			}
			if s.latest == nil || ts.After(*s.latest) {
				s.latest = &ts
			}
		}
	}
	return ids
}

// Len returns the number of committed records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns the record with the given id.
func (s *RecordStore) Get(id models.RecordID) (models.LogRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || int(id) > len(s.records) {
		return models.LogRecord{}, false
	}
	return s.records[id-1], true
}

// GetMany returns the records for a batch of ids, skipping unknown ones.
func (s *RecordStore) GetMany(ids []models.RecordID) []models.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LogRecord, 0, len(ids))
	for _, id := range ids {
		if id >= 1 && int(id) <= len(s.records) {
			out = append(out, s.records[id-1])
		}
	}
	return out
}

// Query returns the ids of records matching the criteria, in ascending
// insertion order by default, as a bounded window plus a continuation
// cursor. An empty criteria matches every record exactly once.
func (s *RecordStore) Query(c models.FilterCriteria, cursor string, limit int) (QueryPage, error) {
	if limit <= 0 {
		return QueryPage{}, fmt.Errorf("query limit must be positive, got %d", limit)
	}
	sortOrder := c.Sort
	if sortOrder == "" {
		sortOrder = models.SortInsertion
	}

	offset, err := decodeCursor(cursor, sortOrder)
	if err != nil {
		return QueryPage{}, err
	}

	// The permutation cache needs the write lock; take it before the
	// read lock for the scan. Records appended in between simply fall
	// outside this query's snapshot.
	var domain []models.RecordID
	if sortOrder == models.SortTimestamp {
		domain = s.timestampOrder()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	match := s.compileCriteria(c)

	n := len(s.records)
	if domain != nil {
		n = len(domain)
	}

	page := QueryPage{IDs: make([]models.RecordID, 0, limit)}
	scanned := 0
	for i := 0; i < n; i++ {
		var rec *models.LogRecord
		if domain != nil {
			rec = &s.records[domain[i]-1]
		} else {
			rec = &s.records[i]
		}

		if !match(rec) {
			continue
		}
		if scanned >= offset && len(page.IDs) < limit {
			page.IDs = append(page.IDs, rec.ID)
		}
		scanned++
	}

	page.Total = scanned
	if offset+len(page.IDs) < page.Total {
		page.Next = encodeCursor(sortOrder, offset+len(page.IDs))
	}
	return page, nil
}

// compileCriteria precomputes the per-record predicate for a query.
// Called with at least a read lock held.
func (s *RecordStore) compileCriteria(c models.FilterCriteria) func(*models.LogRecord) bool {
	var sourceSet map[string]struct{}
	if len(c.Sources) > 0 {
		sourceSet = make(map[string]struct{}, len(c.Sources))
		for _, src := range c.Sources {
			sourceSet[src] = struct{}{}
		}
	}
	needle := strings.ToLower(c.Contains)
	hasRange := c.From != nil || c.Until != nil

	return func(rec *models.LogRecord) bool {
		if rec.Severity < c.MinSeverity {
			return false
		}
		if hasRange {
			// Records without a timestamp are excluded from range
			// filters; they are included when no range is set.
			if rec.Timestamp == nil {
				return false
			}
			if c.From != nil && rec.Timestamp.Before(*c.From) {
				return false
			}
			if c.Until != nil && rec.Timestamp.After(*c.Until) {
				return false
			}
		}
		if sourceSet != nil {
			if _, ok := sourceSet[rec.Source]; !ok {
				return false
			}
		}
		if needle != "" && !strings.Contains(strings.ToLower(rec.Message), needle) {
			return false
		}
		return true
	}
}

// timestampOrder returns the timestamp-sorted permutation, rebuilding
// it if records were appended since the last build. Records without a
// timestamp sort last, keeping their insertion order; ties also keep
// insertion order (the sort is stable).
func (s *RecordStore) timestampOrder() []models.RecordID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tsOrder) == len(s.records) {
		return s.tsOrder
	}
	order := make([]models.RecordID, len(s.records))
	for i := range s.records {
		order[i] = models.RecordID(i + 1)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ta := s.records[order[a]-1].Timestamp
		tb := s.records[order[b]-1].Timestamp
		switch {
		case ta == nil:
			return false
		case tb == nil:
			return true
		default:
			return ta.Before(*tb)
		}
	})
	s.tsOrder = order
	return s.tsOrder
}

// Summary builds the ingestion summary event for the rendering layer.
func (s *RecordStore) Summary() models.IngestSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := models.IngestSummary{
		Files:      make([]models.SourceSummary, 0, len(s.sourceOrder)),
		Records:    len(s.records),
		Structured: s.structured,
		Fallback:   len(s.records) - s.structured,
		BySeverity: make(map[string]int, len(s.bySeverity)),
		Warnings:   s.warnings,
	}
	for _, name := range s.sourceOrder {
		summary.Files = append(summary.Files, *s.sources[name])
	}
	for sev, count := range s.bySeverity {
		summary.BySeverity[sev.String()] = count
	}
	if s.earliest != nil && s.latest != nil {
		summary.TimeBounds = &models.SummaryBounds{
			Earliest: s.earliest.Format(time.RFC3339Nano),
			Latest:   s.latest.Format(time.RFC3339Nano),
		}
	}
	return summary
}

// Sources returns the names of all loaded source files in load order.
func (s *RecordStore) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.sourceOrder))
	copy(out, s.sourceOrder)
	return out
}

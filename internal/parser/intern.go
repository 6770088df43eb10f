package parser

import "sync"

// StringIntern provides thread-safe string interning. Logger and source
// names repeat across millions of records; interning makes equal strings
// share one allocation.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// MaxInternPoolSize caps the pool to prevent unbounded growth on inputs
// with many unique strings; once reached, strings pass through untouched.
const MaxInternPoolSize = 100000

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 1024),
	}
}

// Intern returns the canonical version of s.
func (si *StringIntern) Intern(s string) string {
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	full := len(si.pool) >= MaxInternPoolSize
	si.mu.RUnlock()

	if full {
		return s
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return s
	}
	si.pool[s] = s
	return s
}

// Len returns the number of unique strings in the pool.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}

package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/smart-city-backend/internal/report"
)

var (
	// ErrNotFound is returned when no issue exists for a given id.
	ErrNotFound = errors.New("issue not found")
)

// MemoryIssueStore is a concurrency-safe in-memory implementation of report.Store.
type MemoryIssueStore struct {
	mu sync.RWMutex

	// time-ordered, oldest first
	issues []report.Issue
	// number of issues ever saved; ids are never reused after pruning
	seq int

	// retention configuration
	maxIssues int           // max number of issues kept (0 = unlimited)
	maxAge    time.Duration // max age of issues (0 = unlimited)

	now func() time.Time
}

// NewMemoryIssueStore creates a new MemoryIssueStore with optional limits.
func NewMemoryIssueStore(maxIssues int, maxAge time.Duration) *MemoryIssueStore {
	return &MemoryIssueStore{
		maxIssues: maxIssues,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Save assigns the next sequential id, stamps the report time and appends the issue.
func (s *MemoryIssueStore) Save(issue report.Issue) report.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	issue.ID = s.seq
	issue.Time = s.now().UTC()
	s.issues = append(s.issues, issue)

	// Enforce retention by count.
	if s.maxIssues > 0 && len(s.issues) > s.maxIssues {
		over := len(s.issues) - s.maxIssues
		s.issues = append([]report.Issue(nil), s.issues[over:]...)
	}

	return issue
}

// Get returns the issue with the given id.
func (s *MemoryIssueStore) Get(id int) (report.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, issue := range s.issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return report.Issue{}, ErrNotFound
}

// List returns a copy of all retained issues, oldest first.
func (s *MemoryIssueStore) List() []report.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]report.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Prune drops issues older than maxAge relative to now and returns how many
// were removed. It is a no-op when maxAge is unlimited.
func (s *MemoryIssueStore) Prune(now time.Time) int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := 0
	for ; i < len(s.issues); i++ {
		if !s.issues[i].Time.Before(cutoff) {
			break
		}
	}
	if i > 0 {
		s.issues = append([]report.Issue(nil), s.issues[i:]...)
	}
	return i
}

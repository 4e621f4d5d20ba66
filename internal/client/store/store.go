// Package store holds the mock backend's issue collection. The collection
// and the next-id counter are written to a metadata slot after every
// mutation so they survive restarts.
package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/client/repositories/metadata"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/logging"
)

type snapshot struct {
	Issues  []models.Issue `json:"issues"`
	Counter int            `json:"counter"`
}

// Store is safe for concurrent use. Writers in other processes sharing the
// same slot are not coordinated; the last save wins.
type Store struct {
	mu      sync.Mutex
	issues  []models.Issue
	counter int

	slot metadata.Repository
	log  logging.Logger
}

// New loads the snapshot from slot. A missing or unreadable snapshot yields
// an empty store with counter 1.
func New(ctx context.Context, slot metadata.Repository, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	s := &Store{slot: slot, log: log, counter: 1, issues: []models.Issue{}}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	if s.slot == nil {
		return
	}

	data, err := s.slot.Get(ctx, metadata.KeyMockIssues)
	if err != nil {
		s.log.Warn(ctx, "mock store: read failed, starting empty", "error", err)
		return
	}
	if data == nil {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn(ctx, "mock store: corrupt snapshot, starting empty", "error", err)
		return
	}

	if snap.Issues != nil {
		s.issues = snap.Issues
	}
	if snap.Counter > 0 {
		s.counter = snap.Counter
	}
	s.log.Debug(ctx, "mock store loaded", "issues", len(s.issues), "counter", s.counter)
}

// Save writes the current state to the slot. Failures are logged; the
// in-memory state stays authoritative.
func (s *Store) Save(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save(ctx)
}

func (s *Store) save(ctx context.Context) {
	if s.slot == nil {
		return
	}

	data, err := json.Marshal(snapshot{Issues: s.issues, Counter: s.counter})
	if err != nil {
		s.log.Error(ctx, "mock store: encode failed", "error", err)
		return
	}
	if err := s.slot.Set(ctx, metadata.KeyMockIssues, data); err != nil {
		s.log.Error(ctx, "mock store: save failed", "error", err)
	}
}

// AllocateID returns the next id and advances the counter.
func (s *Store) AllocateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strconv.Itoa(s.counter)
	s.counter++
	return id
}

// Prepend inserts issue at the front (most recent first) and persists.
func (s *Store) Prepend(ctx context.Context, issue models.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issues = append([]models.Issue{issue.Clone()}, s.issues...)
	s.save(ctx)
}

// List returns a copy of the collection in stored order.
func (s *Store) List() []models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Issue, len(s.issues))
	for i, is := range s.issues {
		out[i] = is.Clone()
	}
	return out
}

// Get returns the issue with id or common.ErrNotFound.
func (s *Store) Get(id string) (models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Issue{}, common.ErrNotFound
	}
	return s.issues[i].Clone(), nil
}

// Update applies fn to a copy of the issue with id and stores the result
// when fn succeeds. Nothing changes when the id is unknown or fn fails.
func (s *Store) Update(ctx context.Context, id string, fn func(*models.Issue) error) (models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Issue{}, common.ErrNotFound
	}

	next := s.issues[i].Clone()
	if err := fn(&next); err != nil {
		return models.Issue{}, err
	}
	next.ID = id

	s.issues[i] = next
	s.save(ctx)
	return next.Clone(), nil
}

// Len reports the number of stored issues.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

func (s *Store) indexOf(id string) int {
	for i := range s.issues {
		if s.issues[i].ID == id {
			return i
		}
	}
	return -1
}

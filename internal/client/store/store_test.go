package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/client/repositories/metadata"
	"github.com/sheharfix/civicsync/internal/common"
)

type memSlot struct {
	mu      sync.Mutex
	data    map[string][]byte
	setErr  error
	getErr  error
	setCall int
}

func newMemSlot() *memSlot { return &memSlot{data: map[string][]byte{}} }

func (m *memSlot) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memSlot) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCall++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memSlot) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSlot) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
	return nil
}

func (m *memSlot) List(_ context.Context) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

var _ metadata.Repository = (*memSlot)(nil)

func TestNew_EmptySlot(t *testing.T) {
	s := New(context.Background(), newMemSlot(), nil)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "1", s.AllocateID())
	assert.Equal(t, "2", s.AllocateID())
}

func TestNew_CorruptSnapshotStartsEmpty(t *testing.T) {
	slot := newMemSlot()
	slot.data[metadata.KeyMockIssues] = []byte("{not json")

	s := New(context.Background(), slot, nil)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "1", s.AllocateID())
}

func TestNew_ReadErrorStartsEmpty(t *testing.T) {
	slot := newMemSlot()
	slot.getErr = errors.New("disk gone")

	s := New(context.Background(), slot, nil)
	assert.Equal(t, 0, s.Len())
}

func TestNew_ZeroCounterTreatedAsOne(t *testing.T) {
	slot := newMemSlot()
	slot.data[metadata.KeyMockIssues] = []byte(`{"issues":[],"counter":0}`)

	s := New(context.Background(), slot, nil)
	assert.Equal(t, "1", s.AllocateID())
}

func TestReload_KeepsIssuesAndCounter(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()

	s := New(ctx, slot, nil)
	for _, title := range []string{"a", "b", "c"} {
		s.Prepend(ctx, models.Issue{ID: s.AllocateID(), Title: title, Status: models.StatusReported})
	}
	before := s.List()

	reloaded := New(ctx, slot, nil)
	assert.Equal(t, before, reloaded.List())

	id := reloaded.AllocateID()
	for _, is := range before {
		assert.NotEqual(t, is.ID, id)
	}
	assert.Equal(t, "4", id)
}

func TestPrepend_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMemSlot(), nil)

	s.Prepend(ctx, models.Issue{ID: "1"})
	s.Prepend(ctx, models.Issue{ID: "2"})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].ID)
	assert.Equal(t, "1", list[1].ID)
}

func TestList_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMemSlot(), nil)
	s.Prepend(ctx, models.Issue{ID: "1", Images: []string{"a"}})

	list := s.List()
	list[0].Images[0] = "mutated"
	list[0].Title = "mutated"

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Images)
	assert.Empty(t, got.Title)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := New(ctx, slot, nil)
	s.Prepend(ctx, models.Issue{ID: "1", Upvotes: 2})

	t.Run("applies and persists", func(t *testing.T) {
		got, err := s.Update(ctx, "1", func(is *models.Issue) error {
			is.Upvotes++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, got.Upvotes)

		reloaded := New(ctx, slot, nil)
		is, err := reloaded.Get("1")
		require.NoError(t, err)
		assert.Equal(t, 3, is.Upvotes)
	})

	t.Run("unknown id", func(t *testing.T) {
		calls := slot.setCall
		_, err := s.Update(ctx, "404", func(is *models.Issue) error { return nil })
		require.ErrorIs(t, err, common.ErrNotFound)
		assert.Equal(t, calls, slot.setCall)
	})

	t.Run("fn error leaves issue untouched", func(t *testing.T) {
		_, err := s.Update(ctx, "1", func(is *models.Issue) error {
			is.Upvotes = 100
			return common.ErrInvalidTransition
		})
		require.ErrorIs(t, err, common.ErrInvalidTransition)
		is, _ := s.Get("1")
		assert.Equal(t, 3, is.Upvotes)
	})

	t.Run("id cannot be changed", func(t *testing.T) {
		got, err := s.Update(ctx, "1", func(is *models.Issue) error {
			is.ID = "99"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "1", got.ID)
	})
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	slot.setErr = errors.New("quota exceeded")

	s := New(ctx, slot, nil)
	s.Prepend(ctx, models.Issue{ID: s.AllocateID()})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, slot.setCall)
}

func TestConcurrentAllocateIDIsUnique(t *testing.T) {
	s := New(context.Background(), newMemSlot(), nil)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- s.AllocateID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

package logins

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/interview-engine/internal/models"
)

type memoryStore struct {
	mu     sync.Mutex
	logins []models.UserLogin
	err    error
	nextID int64
}

func (s *memoryStore) RecordLogin(_ context.Context, login *models.UserLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	login.ID = s.nextID
	login.CreatedAt = login.LoginTime
	s.logins = append(s.logins, *login)
	return nil
}

func (s *memoryStore) LatestLogin(_ context.Context, userID string, since time.Time) (*models.UserLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for i := len(s.logins) - 1; i >= 0; i-- {
		l := s.logins[i]
		if l.UserID == userID && !l.LoginTime.Before(since) {
			return &l, nil
		}
	}
	return nil, nil
}

func newTestTracker(store Store) (*Tracker, *time.Time) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tr := NewTracker(store, DefaultOptions())
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestTracker_Record(t *testing.T) {
	store := &memoryStore{}
	tr, now := newTestTracker(store)
	ctx := context.Background()

	out, err := tr.Record(ctx, &models.UserLogin{UserID: "u1", Email: "ada@example.com", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Equal(t, int64(1), out.Login.ID)
	assert.Equal(t, *now, out.Login.LoginTime)

	*now = now.Add(10 * time.Second)
	out, err = tr.Record(ctx, &models.UserLogin{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, SourceCache, out.Source)

	*now = now.Add(time.Minute)
	out, err = tr.Record(ctx, &models.UserLogin{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, SourceDatabase, out.Source)
	assert.Equal(t, int64(1), out.Login.ID)

	*now = now.Add(15 * time.Minute)
	out, err = tr.Record(ctx, &models.UserLogin{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Equal(t, "unknown", out.Login.IPAddress)
	assert.Len(t, store.logins, 2)
}

func TestTracker_RecordErrors(t *testing.T) {
	tr, _ := newTestTracker(&memoryStore{})
	_, err := tr.Record(context.Background(), &models.UserLogin{UserID: "  "})
	assert.ErrorIs(t, err, ErrMissingUser)

	broken := &memoryStore{err: errors.New("connection refused")}
	tr, _ = newTestTracker(broken)
	_, err = tr.Record(context.Background(), &models.UserLogin{UserID: "u1"})
	assert.Error(t, err)
	assert.Zero(t, tr.CacheSize(), "failed logins must not be cached")
}

func TestTracker_EvictStale(t *testing.T) {
	tr, now := newTestTracker(&memoryStore{})
	ctx := context.Background()

	_, err := tr.Record(ctx, &models.UserLogin{UserID: "u1"})
	require.NoError(t, err)

	*now = now.Add(30 * time.Minute)
	_, err = tr.Record(ctx, &models.UserLogin{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, 2, tr.CacheSize())

	*now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, tr.EvictStale())
	assert.Equal(t, 1, tr.CacheSize())
}

func TestRecentCache_Capacity(t *testing.T) {
	c := NewRecentCache(2)
	base := time.Now()

	c.Mark("a", base)
	c.Mark("b", base.Add(time.Second))
	c.Mark("a", base.Add(2*time.Second))
	c.Mark("c", base.Add(3*time.Second))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Within("b", base.Add(3*time.Second), time.Minute)
	assert.False(t, ok, "oldest entry should have been dropped")
	_, ok = c.Within("a", base.Add(3*time.Second), time.Minute)
	assert.True(t, ok)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded list", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.1:54321", want: "192.0.2.1"},
		{name: "no address", remote: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/v1/logins", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

// Package logins records user sign-ins and suppresses duplicates caused by
// page reloads and repeated client callbacks.
package logins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// ErrMissingUser is returned when a login has no user ID
var ErrMissingUser = errors.New("user_id is required")

// Store persists logins
type Store interface {
	RecordLogin(ctx context.Context, login *models.UserLogin) error
	LatestLogin(ctx context.Context, userID string, since time.Time) (*models.UserLogin, error)
}

// Options configures a Tracker
type Options struct {
	// DuplicateWindow suppresses repeats from memory without a query
	DuplicateWindow time.Duration
	// RecentWindow suppresses repeats already stored in the database
	RecentWindow time.Duration
	// CacheHorizon is how long cache entries are kept
	CacheHorizon  time.Duration
	CacheCapacity int
}

// DefaultOptions returns a 30 second memory window, a 10 minute database
// window and a one hour cache horizon
func DefaultOptions() Options {
	return Options{
		DuplicateWindow: 30 * time.Second,
		RecentWindow:    10 * time.Minute,
		CacheHorizon:    time.Hour,
		CacheCapacity:   10000,
	}
}

// Source says which check caught a duplicate
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

// Outcome is the result of Record
type Outcome struct {
	Duplicate bool
	Source    Source
	// Login is the stored row: the new one, or the existing one for a
	// database duplicate
	Login *models.UserLogin
	// LastAttempt is set for cache duplicates
	LastAttempt time.Time
}

// Tracker records logins with duplicate suppression
type Tracker struct {
	store Store
	cache *RecentCache
	opts  Options
	now   func() time.Time
}

// NewTracker creates a Tracker
func NewTracker(store Store, opts Options) *Tracker {
	defaults := DefaultOptions()
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = defaults.DuplicateWindow
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = defaults.RecentWindow
	}
	if opts.CacheHorizon <= 0 {
		opts.CacheHorizon = defaults.CacheHorizon
	}

	return &Tracker{
		store: store,
		cache: NewRecentCache(opts.CacheCapacity),
		opts:  opts,
		now:   time.Now,
	}
}

// Record stores login unless the same user logged in recently
func (t *Tracker) Record(ctx context.Context, login *models.UserLogin) (*Outcome, error) {
	if login == nil || strings.TrimSpace(login.UserID) == "" {
		return nil, ErrMissingUser
	}

	now := t.now()
	if last, ok := t.cache.Within(login.UserID, now, t.opts.DuplicateWindow); ok {
		slog.Debug("duplicate login suppressed", "user", login.UserID, "source", SourceCache)
		return &Outcome{Duplicate: true, Source: SourceCache, LastAttempt: last}, nil
	}

	existing, err := t.store.LatestLogin(ctx, login.UserID, now.Add(-t.opts.RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to check recent logins: %w", err)
	}
	if existing != nil {
		t.cache.Mark(login.UserID, now)
		slog.Debug("duplicate login suppressed", "user", login.UserID, "source", SourceDatabase, "existing_id", existing.ID)
		return &Outcome{Duplicate: true, Source: SourceDatabase, Login: existing}, nil
	}

	if login.LoginTime.IsZero() {
		login.LoginTime = now
	}
	if login.IPAddress == "" {
		login.IPAddress = "unknown"
	}

	if err := t.store.RecordLogin(ctx, login); err != nil {
		return nil, err
	}

	t.cache.Mark(login.UserID, now)
	t.EvictStale()

	slog.Info("user login recorded", "user", login.UserID, "login_id", login.ID, "ip", login.IPAddress)
	return &Outcome{Login: login}, nil
}

// EvictStale drops cache entries older than the cache horizon
func (t *Tracker) EvictStale() int {
	return t.cache.Evict(t.now().Add(-t.opts.CacheHorizon))
}

// CacheSize returns the number of users in the duplicate cache
func (t *Tracker) CacheSize() int {
	return t.cache.Len()
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then
// the host part of the remote address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// SessionReaper removes interview sessions idle for longer than ttl
type SessionReaper interface {
	ReapIdle(ctx context.Context, ttl time.Duration) int
}

// StaleEvicter drops expired entries from an in-memory cache
type StaleEvicter interface {
	EvictStale() int
}

// Cleaner handles periodic cleanup of abandoned sessions and stale login cache entries
type Cleaner struct {
	sessions SessionReaper
	logins   StaleEvicter
	idleTTL  time.Duration
	interval time.Duration
}

// NewCleaner creates a new cleanup worker. Either target may be nil.
func NewCleaner(sessions SessionReaper, logins StaleEvicter, idleTTL, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}

	return &Cleaner{
		sessions: sessions,
		logins:   logins,
		idleTTL:  idleTTL,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval, "idle_ttl", c.idleTTL)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// Result counts what one cleanup cycle removed
type Result struct {
	Sessions int
	Logins   int
}

// RunOnce performs a single cleanup cycle
func (c *Cleaner) RunOnce(ctx context.Context) Result {
	slog.Debug("running cleanup cycle")

	var res Result
	if c.sessions != nil {
		res.Sessions = c.sessions.ReapIdle(ctx, c.idleTTL)
	}
	if c.logins != nil {
		res.Logins = c.logins.EvictStale()
	}

	if res.Sessions > 0 || res.Logins > 0 {
		slog.Info("cleanup cycle finished",
			"idle_sessions", res.Sessions,
			"stale_logins", res.Logins,
		)
	}
	return res
}

// Evicters runs several StaleEvicters as one
type Evicters []StaleEvicter

// EvictStale implements StaleEvicter and returns the total evicted
func (e Evicters) EvictStale() int {
	n := 0
	for _, ev := range e {
		if ev != nil {
			n += ev.EvictStale()
		}
	}
	return n
}

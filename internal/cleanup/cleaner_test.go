package cleanup

import (
	"context"
	"testing"
	"time"
)

type fakeReaper struct {
	ttl   time.Duration
	calls int
	n     int
}

func (f *fakeReaper) ReapIdle(_ context.Context, ttl time.Duration) int {
	f.calls++
	f.ttl = ttl
	return f.n
}

type fakeEvicter struct {
	calls int
	n     int
}

func (f *fakeEvicter) EvictStale() int {
	f.calls++
	return f.n
}

func TestCleaner_RunOnce(t *testing.T) {
	reaper := &fakeReaper{n: 2}
	evicter := &fakeEvicter{n: 5}

	c := NewCleaner(reaper, evicter, 30*time.Minute, time.Minute)
	res := c.RunOnce(context.Background())

	if res.Sessions != 2 || res.Logins != 5 {
		t.Errorf("unexpected result: %+v", res)
	}
	if reaper.ttl != 30*time.Minute {
		t.Errorf("expected idle ttl 30m, got %v", reaper.ttl)
	}
	if reaper.calls != 1 || evicter.calls != 1 {
		t.Errorf("expected one call each, got %d and %d", reaper.calls, evicter.calls)
	}
}

func TestCleaner_NilTargets(t *testing.T) {
	c := NewCleaner(nil, nil, 0, 0)
	if c.interval != 5*time.Minute || c.idleTTL != 2*time.Hour {
		t.Errorf("unexpected defaults: interval=%v ttl=%v", c.interval, c.idleTTL)
	}

	if res := c.RunOnce(context.Background()); res != (Result{}) {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestCleaner_StopsOnCancel(t *testing.T) {
	evicter := &fakeEvicter{}
	c := NewCleaner(nil, evicter, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancel")
	}
}

func TestEvicters(t *testing.T) {
	a := &fakeEvicter{n: 2}
	b := &fakeEvicter{n: 3}

	c := NewCleaner(nil, Evicters{a, nil, b}, 0, 0)
	res := c.RunOnce(context.Background())

	if res.Logins != 5 {
		t.Errorf("expected 5 evictions, got %d", res.Logins)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("expected each evicter called once, got %d and %d", a.calls, b.calls)
	}
}

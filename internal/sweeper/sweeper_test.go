package sweeper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeGate struct {
	admin bool
	err   error
}

func (g *fakeGate) HasActiveAdmin(context.Context, time.Time) (bool, error) { return g.admin, g.err }

type fakePurger struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (p *fakePurger) PurgeExpired(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return p.n, p.err
}

func newTestSweeper(g Gate, p Purger) (*Sweeper, *bytes.Buffer) {
	var buf bytes.Buffer
	s := New(g, p, time.Hour)
	s.Logger = zerolog.New(&buf)
	return s, &buf
}

func TestTick_SkipsWithoutAdmin(t *testing.T) {
	p := &fakePurger{n: 3}
	s, _ := newTestSweeper(&fakeGate{admin: false}, p)
	if n := s.Tick(context.Background()); n != 0 {
		t.Fatalf("Tick = %d; want 0", n)
	}
	if p.calls.Load() != 0 {
		t.Fatalf("purge ran without an admin session")
	}
}

func TestTick_PurgesWithAdmin(t *testing.T) {
	p := &fakePurger{n: 3}
	s, buf := newTestSweeper(&fakeGate{admin: true}, p)
	if n := s.Tick(context.Background()); n != 3 {
		t.Fatalf("Tick = %d; want 3", n)
	}
	if !strings.Contains(buf.String(), `"deleted":3`) {
		t.Fatalf("expected purge log, got %s", buf.String())
	}
}

func TestTick_ErrorsAreLoggedNotFatal(t *testing.T) {
	s, buf := newTestSweeper(&fakeGate{err: errors.New("db down")}, &fakePurger{})
	if n := s.Tick(context.Background()); n != 0 {
		t.Fatalf("Tick = %d; want 0", n)
	}
	if !strings.Contains(buf.String(), "db down") {
		t.Fatalf("expected gate error in log, got %s", buf.String())
	}

	p := &fakePurger{err: errors.New("locked")}
	s, buf = newTestSweeper(&fakeGate{admin: true}, p)
	s.Tick(context.Background())
	if !strings.Contains(buf.String(), "locked") {
		t.Fatalf("expected purge error in log, got %s", buf.String())
	}
}

func TestTick_RunsPruners(t *testing.T) {
	s, _ := newTestSweeper(&fakeGate{}, &fakePurger{})
	var ran atomic.Int32
	s.Pruners["sessions"] = func(context.Context, time.Time) (int64, error) {
		ran.Add(1)
		return 2, nil
	}
	s.Pruners["idempotency"] = func(context.Context, time.Time) (int64, error) {
		ran.Add(1)
		return 0, errors.New("boom")
	}
	s.Tick(context.Background())
	if ran.Load() != 2 {
		t.Fatalf("pruners run = %d; want 2", ran.Load())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	p := &fakePurger{}
	s, _ := newTestSweeper(&fakeGate{admin: true}, p)
	s.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for p.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sweeper did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	if s := New(&fakeGate{}, &fakePurger{}, 0); s.Interval != time.Hour {
		t.Fatalf("Interval = %v; want 1h", s.Interval)
	}
}

// Package sweeper runs the periodic expiry purge. A purge only runs while an
// administrator session is live, so an unattended deployment keeps expired
// codes until an administrator signs in. Expired sessions and idempotency
// records are pruned on every tick regardless.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Gate reports whether an administrator is currently signed in.
type Gate interface {
	HasActiveAdmin(ctx context.Context, now time.Time) (bool, error)
}

// Purger deletes codes whose expiry day has passed.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Pruner removes one kind of expired housekeeping row.
type Pruner func(ctx context.Context, now time.Time) (int64, error)

// Sweeper ticks every Interval.
type Sweeper struct {
	Gate     Gate
	Purger   Purger
	Pruners  map[string]Pruner
	Interval time.Duration
	Now      func() time.Time
	Logger   zerolog.Logger
}

// New returns a Sweeper using the global logger. A non-positive interval
// defaults to one hour.
func New(gate Gate, purger Purger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		Gate:     gate,
		Purger:   purger,
		Pruners:  map[string]Pruner{},
		Interval: interval,
		Now:      time.Now,
		Logger:   log.With().Str("component", "sweeper").Logger(),
	}
}

// Run ticks until ctx is done. The first sweep happens immediately.
func (s *Sweeper) Run(ctx context.Context) {
	s.Logger.Info().Dur("interval", s.Interval).Msg("sweeper started")
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.Logger.Info().Msg("sweeper stopping")
			return
		case <-t.C:
		}
	}
}

// Tick performs one sweep and returns the number of codes purged.
func (s *Sweeper) Tick(ctx context.Context) int64 {
	now := s.Now()

	for name, prune := range s.Pruners {
		n, err := prune(ctx, now)
		if err != nil {
			s.Logger.Warn().Err(err).Str("target", name).Msg("prune failed")
			continue
		}
		if n > 0 {
			s.Logger.Debug().Int64("rows", n).Str("target", name).Msg("pruned")
		}
	}

	ok, err := s.Gate.HasActiveAdmin(ctx, now)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("admin presence check failed")
		return 0
	}
	if !ok {
		return 0
	}
	n, err := s.Purger.PurgeExpired(ctx, now)
	if err != nil {
		// Retried on the next tick.
		s.Logger.Error().Err(err).Msg("purge expired codes")
		return 0
	}
	if n > 0 {
		s.Logger.Info().Int64("deleted", n).Msg("purged expired codes")
	}
	return n
}

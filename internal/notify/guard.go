package notify

import (
	"context"
	"log/slog"
	"time"

	"certhub/internal/domain"
	"certhub/internal/store/local"
	"certhub/internal/store/remote"
)

// Guard decides whether this instance should run today's expiry sweep. The
// decision is check-then-act against the shared control flag: the read and the
// claim are separate steps, so two instances checking in the same instant can
// both proceed. The Redis and Postgres backends close that window inside
// TryMarkSweep; with other backends a duplicate alert on the same day is the
// accepted worst case. Remote trouble fails open — a duplicate alert beats a
// silently skipped one.
type Guard struct {
	remote   remote.Store
	local    *local.Store
	instance string
	log      *slog.Logger
}

// NewGuard builds a guard. The local store mirrors the flag so an instance
// restarting during a remote outage still remembers its own run.
func NewGuard(remoteStore remote.Store, localStore *local.Store, instance string, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{remote: remoteStore, local: localStore, instance: instance, log: log}
}

// ShouldRun reports whether this instance won today's sweep. A true return
// also records the claim remotely and mirrors it locally.
func (g *Guard) ShouldRun(ctx context.Context, now time.Time) bool {
	flag, err := g.remote.GetControlFlag(ctx)
	if err != nil {
		g.log.Warn("control flag unreachable, falling back to local mirror", "error", err)
		return g.shouldRunFromMirror(ctx, now)
	}
	if flag.RanOn(now) {
		g.log.Debug("sweep already ran today", "by", flag.RunBy)
		return false
	}

	claim := domain.ControlFlag{
		LastSweepDate: domain.SweepDay(now),
		RunBy:         g.instance,
		RunAt:         now,
	}
	won, err := g.remote.TryMarkSweep(ctx, claim)
	if err != nil {
		// Fail open: the claim state is unknown, and skipping risks a day with
		// no alert at all.
		g.log.Warn("sweep claim failed, proceeding anyway", "error", err)
		g.mirror(ctx, claim)
		return true
	}
	if !won {
		g.log.Debug("another instance claimed today's sweep")
		return false
	}

	g.mirror(ctx, claim)
	return true
}

// shouldRunFromMirror consults the local copy of the flag while the remote is
// down. Only this instance's own runs are visible here.
func (g *Guard) shouldRunFromMirror(ctx context.Context, now time.Time) bool {
	if g.local == nil {
		return true
	}
	doc, err := g.local.Load(ctx)
	if err != nil {
		g.log.Warn("local mirror unreadable, proceeding", "error", err)
		return true
	}
	if doc.ControlMirror.RanOn(now) {
		return false
	}
	g.mirror(ctx, domain.ControlFlag{
		LastSweepDate: domain.SweepDay(now),
		RunBy:         g.instance,
		RunAt:         now,
	})
	return true
}

func (g *Guard) mirror(ctx context.Context, flag domain.ControlFlag) {
	if g.local == nil {
		return
	}
	err := g.local.Update(ctx, func(doc *local.Document) error {
		doc.ControlMirror = flag
		return nil
	})
	if err != nil {
		g.log.Warn("mirror control flag", "error", err)
	}
}

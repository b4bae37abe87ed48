package dispatch

import (
	"context"
	"errors"
	"math/rand"

	"github.com/bran/trump304/internal/engine"
	"github.com/bran/trump304/internal/scheduler"
	"github.com/bran/trump304/internal/store"
)

// HandleTimeout is the turn-timer callback. A timer whose turn has
// moved on — different phase, different seat, or an advanced trick —
// is stale and no-ops silently, so firing the same timer twice never
// auto-plays twice.
func (d *Dispatcher) HandleTimeout(ctx context.Context, p scheduler.TimerPayload) {
	var event engine.Event

	err := d.withGame(ctx, p.GameCode, func(g *engine.Game) error {
		if g.Phase != engine.PhasePlaying {
			return errStaleTimer
		}
		if g.TurnSeat != p.Seat {
			return errStaleTimer
		}
		if g.TrickNumber != p.TrickNumber {
			return errStaleTimer
		}

		ev, err := d.withRandEvent(func(rng *rand.Rand) (engine.Event, error) {
			return g.HandleTimeout(p.Seat, rng)
		})
		if err != nil {
			return err
		}

		d.armTurn(g)
		ev["event"] = "turn_timeout"
		ev["seat"] = p.Seat
		event = ev
		return nil
	})
	if errors.Is(err, errStaleTimer) {
		return
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.log.Error("timeout handling failed", "code", p.GameCode, "err", err)
		}
		return
	}

	d.log.Info("turn timed out", "code", p.GameCode, "seat", p.Seat, "trick", p.TrickNumber)

	d.broadcastEvent(ctx, p.GameCode, event)
	d.broadcastStates(ctx, p.GameCode)
	d.scheduleTurnTimer(ctx, p.GameCode)
}

// errStaleTimer aborts the write cycle for a timer that no longer
// applies; it is never surfaced
var errStaleTimer = errors.New("stale timer")

func (d *Dispatcher) withRandEvent(fn func(rng *rand.Rand) (engine.Event, error)) (engine.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.rng)
}

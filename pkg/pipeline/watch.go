package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/observability"
)

// Update is delivered by Watch after every recomputation.
type Update struct {
	// Seq counts updates, starting at 1 for the initial layout.
	Seq    int
	Result *Result
	// Err is set when the recomputation failed; Watch keeps going.
	Err error
	// Coalesced is the number of change events this update covers. It is 0
	// for the initial layout.
	Coalesced int
	At        time.Time
}

// Watch lays out a wall, then recomputes it from scratch whenever n reports
// a change. Events arriving while a layout is running are folded into a
// single follow-up run. onUpdate is called from one goroutine.
//
// Watch returns nil once ctx is cancelled, or the subscription's error if it
// fails.
func (r *Runner) Watch(ctx context.Context, wallID string, n notify.Notifier, opts Options, onUpdate func(Update)) error {
	if err := errors.ValidateID("wall", wallID); err != nil {
		return err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	var pending atomic.Int64
	signal := make(chan struct{}, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.Subscribe(gctx, wallID, func(notify.Event) {
			pending.Add(1)
			select {
			case signal <- struct{}{}:
			default:
			}
		})
	})
	g.Go(func() error {
		seq := 0
		run := func(coalesced int) {
			seq++
			if err := r.Invalidate(gctx, wallID); err != nil {
				r.Logger.Debug("invalidate tile cache", "wall", wallID, "err", err)
			}
			o := opts
			o.Refresh = true
			res, err := r.LayoutWall(gctx, wallID, o)
			if gctx.Err() != nil {
				return
			}
			if coalesced > 0 {
				observability.Layout().OnRelayout(gctx, wallID, coalesced)
				r.Logger.Debug("relayout", "wall", wallID, "events", coalesced)
			}
			onUpdate(Update{Seq: seq, Result: res, Err: err, Coalesced: coalesced, At: time.Now()})
		}

		run(0)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-signal:
				// A zero count means an earlier run already covered the event.
				if c := pending.Swap(0); c > 0 {
					run(int(c))
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

package pipeline

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/wall"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWatchRelayoutsOnInsert(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := newWall(t, 2)
	r := newRunner(t, st)
	broker := notify.NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan Update, 16)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, "w1", broker, Options{Columns: 4}, func(u Update) { updates <- u })
	}()

	first := <-updates
	if first.Seq != 1 || first.Err != nil || first.Coalesced != 0 {
		t.Fatalf("initial update = %+v", first)
	}
	if got := len(first.Result.Layout.Tiles); got != 2 {
		t.Fatalf("initial layout has %d tiles, want 2", got)
	}

	waitFor(t, func() bool { return broker.Subscribers("w1") == 1 })

	added, err := st.InsertTiles(ctx, []wall.Tile{{WallID: "w1", UserID: "u2", Kind: wall.KindText, Text: "hello"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := notify.PublishAll(ctx, broker, notify.InsertEvents(added)); err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-updates:
		if u.Err != nil {
			t.Fatalf("relayout failed: %v", u.Err)
		}
		if u.Seq != 2 || u.Coalesced != 1 {
			t.Errorf("update = seq %d coalesced %d, want 2 and 1", u.Seq, u.Coalesced)
		}
		if got := len(u.Result.Layout.Tiles); got != 3 {
			t.Errorf("relayout has %d tiles, want 3", got)
		}
		if u.Result.CacheInfo.TilesHit {
			t.Error("relayout should not reuse the cached tile listing")
		}
		if newest := u.Result.Layout.Tiles[0]; newest.Text != "hello" {
			t.Errorf("newest tile = %+v, want the inserted text tile first", newest.Tile)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update after insert")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v after cancel", err)
	}
}

func TestWatchCoalescesBursts(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := newWall(t, 1)
	r := newRunner(t, st)
	broker := notify.NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan Update, 64)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, "w1", broker, Options{}, func(u Update) { updates <- u })
	}()
	<-updates
	waitFor(t, func() bool { return broker.Subscribers("w1") == 1 })

	const burst = 20
	for range burst {
		if err := broker.Publish(ctx, notify.Event{WallID: "w1", Kind: notify.KindInsert}); err != nil {
			t.Fatal(err)
		}
	}

	covered := 0
	runs := 0
	for covered < burst {
		select {
		case u := <-updates:
			runs++
			covered += u.Coalesced
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d events covered", covered, burst)
		}
	}
	if covered != burst {
		t.Errorf("covered %d events, want %d", covered, burst)
	}
	if runs > burst {
		t.Errorf("%d runs for %d events", runs, burst)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

type failingNotifier struct{ err error }

func (f failingNotifier) Subscribe(context.Context, string, notify.Handler) error { return f.err }

func TestWatchReturnsSubscribeError(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newRunner(t, newWall(t, 1))
	boom := stderrors.New("subscription refused")
	err := r.Watch(context.Background(), "w1", failingNotifier{boom}, Options{}, func(Update) {})
	if !stderrors.Is(err, boom) {
		t.Errorf("Watch error = %v, want %v", err, boom)
	}
}

func TestWatchReportsLayoutErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newRunner(t, newWall(t, 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan Update, 1)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, "missing", notify.NewBroker(), Options{}, func(u Update) { updates <- u })
	}()
	u := <-updates
	if u.Err == nil {
		t.Error("expected an error update for an unknown wall")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

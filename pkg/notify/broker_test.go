package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/matzehuels/memorywall/pkg/wall"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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

func TestBrokerDeliversToWallSubscribers(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []Event
	done := make(chan error, 1)
	go func() {
		done <- b.Subscribe(ctx, "w1", func(ev Event) {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		})
	}()
	waitFor(t, func() bool { return b.Subscribers("w1") == 1 })

	b.Publish(ctx, Event{WallID: "w2", TileID: "other", Kind: KindInsert})
	b.Publish(ctx, Event{WallID: "w1", TileID: "t1", Kind: KindInsert})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Subscribe returned %v after cancel", err)
	}
	if b.Subscribers("w1") != 0 {
		t.Error("subscription not removed after cancel")
	}
	if got[0].TileID != "t1" {
		t.Errorf("got event %+v", got[0])
	}
}

func TestBrokerRejectsEmptyWall(t *testing.T) {
	b := NewBroker()
	if err := b.Publish(context.Background(), Event{}); err == nil {
		t.Error("Publish without wall ID should fail")
	}
	if err := b.Subscribe(context.Background(), "", func(Event) {}); err == nil {
		t.Error("Subscribe without wall ID should fail")
	}
}

func TestInsertEvents(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	evs := InsertEvents([]wall.Tile{{ID: "a", WallID: "w", CreatedAt: at}, {ID: "b", WallID: "w"}})
	if len(evs) != 2 || evs[0].TileID != "a" || evs[0].Kind != KindInsert || !evs[0].At.Equal(at) {
		t.Errorf("InsertEvents = %+v", evs)
	}

	b := NewBroker()
	if err := PublishAll(context.Background(), b, evs); err != nil {
		t.Errorf("PublishAll: %v", err)
	}
}

// Package notify delivers "a tile was added to this wall" events.
//
// A [Notifier] streams events for one wall to a handler; a [Publisher] emits
// them after tiles are stored. [Broker] does both in process. The natsbus
// subpackage carries events over NATS and the realtime subpackage listens to
// Supabase's postgres_changes feed.
//
// Events are hints: subscribers re-fetch the wall rather than trusting the
// payload, so a dropped or duplicated event costs at most one extra layout.
package notify

import (
	"context"
	"time"

	"github.com/matzehuels/memorywall/pkg/wall"
)

// Kind is the change an event reports.
type Kind string

// KindInsert is the only change walls produce; tiles are never edited.
const KindInsert Kind = "insert"

// Event reports a change to a wall.
type Event struct {
	WallID string    `json:"wall_id"`
	TileID string    `json:"tile_id,omitempty"`
	Kind   Kind      `json:"kind"`
	At     time.Time `json:"at"`
}

// Handler receives events. Calls for one subscription never overlap.
type Handler func(Event)

// Notifier streams events for a wall.
type Notifier interface {
	// Subscribe calls h for every event on wallID until ctx is done. It
	// returns nil after cancellation and an error if the subscription could
	// not be established or broke.
	Subscribe(ctx context.Context, wallID string, h Handler) error
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// InsertEvents returns one insert event per tile.
func InsertEvents(tiles []wall.Tile) []Event {
	evs := make([]Event, len(tiles))
	for i, t := range tiles {
		evs[i] = Event{WallID: t.WallID, TileID: t.ID, Kind: KindInsert, At: t.CreatedAt}
	}
	return evs
}

// PublishAll publishes evs in order and stops at the first error.
func PublishAll(ctx context.Context, p Publisher, evs []Event) error {
	for _, ev := range evs {
		if err := p.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

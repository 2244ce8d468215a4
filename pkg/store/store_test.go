package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/observability"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/store/storetest"
	"github.com/matzehuels/memorywall/pkg/wall"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestMemoryDuplicateWall(t *testing.T) {
	m := store.NewMemory()
	w := wall.Wall{ID: "w1", Title: "t", Code: "123456"}
	if err := m.CreateWall(context.Background(), w); err != nil {
		t.Fatal(err)
	}
	if err := m.CreateWall(context.Background(), w); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("duplicate CreateWall error = %v, want %v", err, errors.ErrCodeConflict)
	}
}

func TestMemoryInsertUnknownWall(t *testing.T) {
	m := store.NewMemory()
	_, err := m.InsertTiles(context.Background(), []wall.Tile{{WallID: "nope", Kind: wall.KindText, Text: "x"}})
	if !errors.Is(err, errors.ErrCodeWallNotFound) {
		t.Errorf("InsertTiles error = %v, want %v", err, errors.ErrCodeWallNotFound)
	}
}

func TestPrepareTiles(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	given := now.Add(-time.Hour)
	tiles, err := store.PrepareTiles([]wall.Tile{
		{WallID: "w", Kind: wall.KindText, Text: "a"},
		{WallID: "w", Kind: wall.KindText, Text: "b"},
		{ID: "keep", WallID: "w", Kind: wall.KindText, Text: "c", CreatedAt: given},
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if tiles[0].ID == "" || tiles[0].ID == tiles[1].ID {
		t.Errorf("IDs not assigned uniquely: %q %q", tiles[0].ID, tiles[1].ID)
	}
	if !tiles[1].CreatedAt.After(tiles[0].CreatedAt) {
		t.Error("batch order should be preserved in CreatedAt")
	}
	if tiles[2].ID != "keep" || !tiles[2].CreatedAt.Equal(given) {
		t.Errorf("explicit fields overwritten: %+v", tiles[2])
	}

	if _, err := store.PrepareTiles([]wall.Tile{{WallID: "../x", Kind: wall.KindText, Text: "a"}}, now); err == nil {
		t.Error("PrepareTiles should reject invalid wall IDs")
	}
}

type recordingHooks struct {
	observability.NoopStoreHooks
	ops []string
}

func (r *recordingHooks) OnStoreCall(_ context.Context, backend, op string, _ time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.ops = append(r.ops, backend+":"+op+":"+status)
}

func TestInstrument(t *testing.T) {
	t.Cleanup(observability.Reset)
	hooks := &recordingHooks{}
	observability.SetStoreHooks(hooks)

	s := store.Instrument(store.NewMemory(), store.BackendMemory)
	ctx := context.Background()
	_ = s.CreateWall(ctx, wall.Wall{ID: "w1", Title: "t", Code: "123456"})
	_, _ = s.GetWall(ctx, "missing")
	_, _ = s.ListTiles(ctx, "w1")

	want := []string{"memory:create_wall:ok", "memory:get_wall:error", "memory:list_tiles:ok"}
	if len(hooks.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", hooks.ops, want)
	}
	for i := range want {
		if hooks.ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, hooks.ops[i], want[i])
		}
	}
}

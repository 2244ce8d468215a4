// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Run exercises s. The store must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	w, err := wall.NewWall("Reunion", "class of 2004", "owner")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("create and get", func(t *testing.T) {
		if err := s.CreateWall(ctx, w); err != nil {
			t.Fatalf("CreateWall: %v", err)
		}
		got, err := s.GetWall(ctx, w.ID)
		if err != nil {
			t.Fatalf("GetWall: %v", err)
		}
		if got.ID != w.ID || got.Title != w.Title || got.Code != w.Code || got.LinkCode != w.LinkCode {
			t.Errorf("GetWall = %+v, want %+v", got, w)
		}
	})

	t.Run("unknown wall", func(t *testing.T) {
		if _, err := s.GetWall(ctx, "missing"); !errors.Is(err, errors.ErrCodeWallNotFound) {
			t.Errorf("GetWall(missing) error = %v, want %v", err, errors.ErrCodeWallNotFound)
		}
	})

	t.Run("tiles newest first", func(t *testing.T) {
		base := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
		in := []wall.Tile{
			{WallID: w.ID, UserID: "u1", Kind: wall.KindText, Text: "oldest", CreatedAt: base},
			{WallID: w.ID, UserID: "u1", Kind: wall.KindImage, FileURL: "https://x/a.jpg",
				Width: wall.Dim(500), Height: wall.Dim(375), CreatedAt: base.Add(2 * time.Hour)},
			{WallID: w.ID, UserID: "u2", Kind: wall.KindVideo, FileURL: "https://x/b.mp4",
				Width: wall.Dim(500), Height: wall.Dim(281), CreatedAt: base.Add(time.Hour)},
		}
		inserted, err := s.InsertTiles(ctx, in)
		if err != nil {
			t.Fatalf("InsertTiles: %v", err)
		}
		for _, tile := range inserted {
			if tile.ID == "" {
				t.Error("InsertTiles should assign IDs")
			}
		}

		got, err := s.ListTiles(ctx, w.ID)
		if err != nil {
			t.Fatalf("ListTiles: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("ListTiles returned %d tiles, want 3", len(got))
		}
		wantOrder := []string{inserted[1].ID, inserted[2].ID, inserted[0].ID}
		for i, id := range wantOrder {
			if got[i].ID != id {
				t.Errorf("tile %d = %s, want %s", i, got[i].ID, id)
			}
		}
		if !got[0].Dimensioned() || *got[0].Width != 500 || *got[0].Height != 375 {
			t.Errorf("dimensions not preserved: %+v", got[0])
		}
		if got[2].Width != nil || got[2].Text != "oldest" {
			t.Errorf("text tile not preserved: %+v", got[2])
		}
	})

	t.Run("insert rejects invalid tiles", func(t *testing.T) {
		_, err := s.InsertTiles(ctx, []wall.Tile{{WallID: w.ID, Kind: wall.KindText}})
		if !errors.Is(err, errors.ErrCodeInvalidTile) {
			t.Errorf("InsertTiles(empty text) error = %v, want %v", err, errors.ErrCodeInvalidTile)
		}
	})

	t.Run("join", func(t *testing.T) {
		if _, err := s.JoinWall(ctx, w.ID, "u1", "Ann", "000000"); !errors.Is(err, errors.ErrCodeForbidden) {
			t.Fatalf("JoinWall(bad code) error = %v, want %v", err, errors.ErrCodeForbidden)
		}
		m1, err := s.JoinWall(ctx, w.ID, "u1", "Ann", w.Code)
		if err != nil {
			t.Fatalf("JoinWall(code): %v", err)
		}
		again, err := s.JoinWall(ctx, w.ID, "u1", "Ann", w.LinkCode)
		if err != nil {
			t.Fatalf("JoinWall(link code): %v", err)
		}
		if again.UserID != m1.UserID || !again.JoinedAt.Equal(m1.JoinedAt) {
			t.Errorf("second join changed membership: %+v vs %+v", again, m1)
		}
		if _, err := s.JoinWall(ctx, w.ID, "u2", "Bo", w.Code); err != nil {
			t.Fatalf("JoinWall(u2): %v", err)
		}

		members, err := s.ListMembers(ctx, w.ID)
		if err != nil {
			t.Fatalf("ListMembers: %v", err)
		}
		if len(members) != 2 || members[0].UserID != "u1" || members[1].UserID != "u2" {
			t.Errorf("ListMembers = %+v", members)
		}

		walls, err := s.ListWalls(ctx, "u2")
		if err != nil {
			t.Fatalf("ListWalls: %v", err)
		}
		if len(walls) != 1 || walls[0].ID != w.ID {
			t.Errorf("ListWalls(u2) = %+v", walls)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

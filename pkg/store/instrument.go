package store

import (
	"context"
	"time"

	"github.com/matzehuels/memorywall/pkg/observability"
	"github.com/matzehuels/memorywall/pkg/wall"
)

type instrumented struct {
	Store
	backend string
}

// Instrument reports every call on s to the store observability hooks under
// the given backend name.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

func (s *instrumented) observe(ctx context.Context, op string, start time.Time, err error) {
	observability.Store().OnStoreCall(ctx, s.backend, op, time.Since(start), err)
}

func (s *instrumented) CreateWall(ctx context.Context, w wall.Wall) error {
	start := time.Now()
	err := s.Store.CreateWall(ctx, w)
	s.observe(ctx, "create_wall", start, err)
	return err
}

func (s *instrumented) GetWall(ctx context.Context, wallID string) (wall.Wall, error) {
	start := time.Now()
	w, err := s.Store.GetWall(ctx, wallID)
	s.observe(ctx, "get_wall", start, err)
	return w, err
}

func (s *instrumented) ListWalls(ctx context.Context, userID string) ([]wall.Wall, error) {
	start := time.Now()
	ws, err := s.Store.ListWalls(ctx, userID)
	s.observe(ctx, "list_walls", start, err)
	return ws, err
}

func (s *instrumented) ListTiles(ctx context.Context, wallID string) ([]wall.Tile, error) {
	start := time.Now()
	tiles, err := s.Store.ListTiles(ctx, wallID)
	s.observe(ctx, "list_tiles", start, err)
	return tiles, err
}

func (s *instrumented) InsertTiles(ctx context.Context, tiles []wall.Tile) ([]wall.Tile, error) {
	start := time.Now()
	out, err := s.Store.InsertTiles(ctx, tiles)
	s.observe(ctx, "insert_tiles", start, err)
	return out, err
}

func (s *instrumented) JoinWall(ctx context.Context, wallID, userID, name, code string) (wall.Member, error) {
	start := time.Now()
	m, err := s.Store.JoinWall(ctx, wallID, userID, name, code)
	s.observe(ctx, "join_wall", start, err)
	return m, err
}

func (s *instrumented) ListMembers(ctx context.Context, wallID string) ([]wall.Member, error) {
	start := time.Now()
	ms, err := s.Store.ListMembers(ctx, wallID)
	s.observe(ctx, "list_members", start, err)
	return ms, err
}

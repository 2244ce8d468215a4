// Package supabase implements store.Store against a hosted Supabase project
// through its PostgREST API.
//
// It talks to the same walls, tiles and wall_members tables as the web
// client, and joins walls through the join_wall_with_code function so the
// code check stays on the server.
package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Store is a PostgREST-backed store.Store.
type Store struct {
	c   *client
	now func() time.Time
}

// New returns a store for the project in cfg. It does not contact the server.
func New(cfg Config) (*Store, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{c: c, now: time.Now}, nil
}

// tileRow adds the is_video column the web client filters on.
type tileRow struct {
	wall.Tile
	IsVideo bool `json:"is_video"`
}

func (s *Store) CreateWall(ctx context.Context, w wall.Wall) error {
	if err := errors.ValidateID("wall", w.ID); err != nil {
		return err
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now().UTC()
	}
	err := s.c.do(ctx, http.MethodPost, "/walls", nil, "return=minimal", w, nil)
	if errors.Is(err, errors.ErrCodeConflict) {
		return errors.New(errors.ErrCodeConflict, "wall %q already exists", w.ID)
	}
	return err
}

func (s *Store) GetWall(ctx context.Context, wallID string) (wall.Wall, error) {
	var walls []wall.Wall
	q := url.Values{"id": {eq(wallID)}, "select": {"*"}}
	if err := s.c.do(ctx, http.MethodGet, "/walls", q, "", nil, &walls); err != nil {
		return wall.Wall{}, err
	}
	if len(walls) == 0 {
		return wall.Wall{}, store.WallNotFound(wallID)
	}
	return walls[0], nil
}

func (s *Store) ListWalls(ctx context.Context, userID string) ([]wall.Wall, error) {
	var rows []struct {
		Wall *wall.Wall `json:"walls"`
	}
	q := url.Values{
		"user_id": {eq(userID)},
		"select":  {"walls(*)"},
		"order":   {"joined_at.desc"},
	}
	if err := s.c.do(ctx, http.MethodGet, "/wall_members", q, "", nil, &rows); err != nil {
		return nil, err
	}
	walls := make([]wall.Wall, 0, len(rows))
	for _, r := range rows {
		if r.Wall != nil {
			walls = append(walls, *r.Wall)
		}
	}
	return walls, nil
}

func (s *Store) ListTiles(ctx context.Context, wallID string) ([]wall.Tile, error) {
	tiles := []wall.Tile{}
	q := url.Values{
		"wall_id": {eq(wallID)},
		"select":  {"*"},
		"order":   {"created_at.desc"},
	}
	if err := s.c.do(ctx, http.MethodGet, "/tiles", q, "", nil, &tiles); err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		if _, err := s.GetWall(ctx, wallID); err != nil {
			return nil, err
		}
	}
	return tiles, nil
}

func (s *Store) InsertTiles(ctx context.Context, tiles []wall.Tile) ([]wall.Tile, error) {
	prepared, err := store.PrepareTiles(tiles, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return prepared, nil
	}
	rows := make([]tileRow, len(prepared))
	for i, t := range prepared {
		rows[i] = tileRow{Tile: t, IsVideo: t.IsVideo()}
	}
	err = s.c.do(ctx, http.MethodPost, "/tiles", nil, "return=minimal", rows, nil)
	if c := errors.GetCode(err); c == errors.ErrCodeConflict || c == errors.ErrCodeInvalidInput {
		// foreign key violations surface as 409
		for _, t := range prepared {
			if _, gerr := s.GetWall(ctx, t.WallID); gerr != nil {
				return nil, gerr
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

func (s *Store) JoinWall(ctx context.Context, wallID, userID, name, code string) (wall.Member, error) {
	if _, err := s.GetWall(ctx, wallID); err != nil {
		return wall.Member{}, err
	}
	if err := errors.ValidateID("user", userID); err != nil {
		return wall.Member{}, err
	}

	args := map[string]string{"p_wall_id": wallID, "p_user_id": userID, "p_code": code}
	err := s.c.do(ctx, http.MethodPost, "/rpc/join_wall_with_code", nil, "", args, nil)
	if err != nil {
		if c := errors.GetCode(err); c == errors.ErrCodeInvalidInput || c == errors.ErrCodeForbidden {
			return wall.Member{}, store.BadCode(wallID)
		}
		return wall.Member{}, err
	}

	m, err := s.member(ctx, wallID, userID)
	if err != nil {
		return wall.Member{}, err
	}
	if m.Name == "" && name != "" {
		q := url.Values{"wall_id": {eq(wallID)}, "user_id": {eq(userID)}}
		body := map[string]string{"name": name}
		if err := s.c.do(ctx, http.MethodPatch, "/wall_members", q, "return=minimal", body, nil); err != nil {
			return wall.Member{}, err
		}
		m.Name = name
	}
	return m, nil
}

func (s *Store) member(ctx context.Context, wallID, userID string) (wall.Member, error) {
	var members []wall.Member
	q := url.Values{"wall_id": {eq(wallID)}, "user_id": {eq(userID)}, "select": {"*"}}
	if err := s.c.do(ctx, http.MethodGet, "/wall_members", q, "", nil, &members); err != nil {
		return wall.Member{}, err
	}
	if len(members) == 0 {
		return wall.Member{}, errors.New(errors.ErrCodeNotFound, "user %q is not a member of wall %q", userID, wallID)
	}
	return members[0], nil
}

func (s *Store) ListMembers(ctx context.Context, wallID string) ([]wall.Member, error) {
	members := []wall.Member{}
	q := url.Values{"wall_id": {eq(wallID)}, "select": {"*"}, "order": {"joined_at.asc"}}
	if err := s.c.do(ctx, http.MethodGet, "/wall_members", q, "", nil, &members); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		if _, err := s.GetWall(ctx, wallID); err != nil {
			return nil, err
		}
	}
	return members, nil
}

// Ping fetches nothing from the walls table to check reachability and the key.
func (s *Store) Ping(ctx context.Context) error {
	var walls []wall.Wall
	q := url.Values{"select": {"id"}, "limit": {"0"}}
	return s.c.do(ctx, http.MethodGet, "/walls", q, "", nil, &walls)
}

func (s *Store) Close() error {
	s.c.http.CloseIdleConnections()
	return nil
}

var _ store.Store = (*Store)(nil)

// Package store persists walls, tiles and memberships.
//
// [Store] is implemented by an in-process [Memory] store and by the backends in
// the subpackages:
//
//   - store/postgres: the walls, tiles and wall_members tables over sqlx
//   - store/supabase: the same tables through the hosted PostgREST API
//   - store/bolt: a single local file, for the CLI
//   - store/mongo: MongoDB collections
//
// Every backend returns tiles newest first and treats joining a wall as
// idempotent. Wrap a backend with [Instrument] to report calls to the
// observability hooks.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Store is the persistence boundary of a wall.
type Store interface {
	// CreateWall stores a new wall. The ID must be unused.
	CreateWall(ctx context.Context, w wall.Wall) error
	// GetWall returns the wall or an ErrCodeWallNotFound error.
	GetWall(ctx context.Context, wallID string) (wall.Wall, error)
	// ListWalls returns the walls userID is a member of, most recently
	// joined first.
	ListWalls(ctx context.Context, userID string) ([]wall.Wall, error)

	// ListTiles returns the tiles of a wall, newest first.
	ListTiles(ctx context.Context, wallID string) ([]wall.Tile, error)
	// InsertTiles stores tiles and returns them with IDs and creation times
	// filled in.
	InsertTiles(ctx context.Context, tiles []wall.Tile) ([]wall.Tile, error)

	// JoinWall adds userID to the wall if code unlocks it. Joining twice
	// returns the existing membership.
	JoinWall(ctx context.Context, wallID, userID, name, code string) (wall.Member, error)
	// ListMembers returns the members of a wall, oldest first.
	ListMembers(ctx context.Context, wallID string) ([]wall.Member, error)

	Ping(ctx context.Context) error
	Close() error
}

// Backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendBolt     = "bolt"
	BackendMongo    = "mongo"
)

// Backends lists every backend name.
var Backends = []string{BackendMemory, BackendPostgres, BackendSupabase, BackendBolt, BackendMongo}

// WallNotFound returns the error backends report for an unknown wall.
func WallNotFound(wallID string) error {
	return errors.New(errors.ErrCodeWallNotFound, "wall %q not found", wallID)
}

// BadCode returns the error backends report for a rejected join code.
func BadCode(wallID string) error {
	return errors.New(errors.ErrCodeForbidden, "join code does not match wall %q", wallID)
}

// PrepareTiles validates tiles and fills in missing IDs and creation times.
// Tiles without a creation time get now, offset by their index in
// microseconds so a batch keeps its order.
func PrepareTiles(tiles []wall.Tile, now time.Time) ([]wall.Tile, error) {
	out := make([]wall.Tile, len(tiles))
	for i, t := range tiles {
		if err := errors.ValidateID("wall", t.WallID); err != nil {
			return nil, err
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.ID == "" {
			t.ID = wall.NewTileID()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out[i] = t
	}
	return out, nil
}

// CheckJoin validates a join request against w.
func CheckJoin(w wall.Wall, userID, code string) error {
	if err := errors.ValidateID("user", userID); err != nil {
		return err
	}
	if !w.Accepts(strings.TrimSpace(code)) {
		return BadCode(w.ID)
	}
	return nil
}

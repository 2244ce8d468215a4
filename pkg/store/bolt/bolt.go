// Package bolt implements store.Store in a single local bbolt file.
//
// Layout:
//
//	walls/<wallID>             gob(wall.Wall)
//	tiles/<wallID>/<ts><id>    gob(wall.Tile), ts is CreatedAt in big-endian nanoseconds
//	members/<wallID>/<userID>  gob(wall.Member)
//
// Tile keys sort by creation time, so ListTiles walks each wall bucket
// backwards.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

var (
	bucketWalls   = []byte("walls")
	bucketTiles   = []byte("tiles")
	bucketMembers = []byte("members")
)

// Store is a bbolt-backed store.Store.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketWalls, bucketTiles, bucketMembers} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Path returns the database file path.
func (s *Store) Path() string { return s.db.Path() }

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func tileKey(t wall.Tile) []byte {
	k := make([]byte, 8, 8+len(t.ID))
	binary.BigEndian.PutUint64(k, uint64(t.CreatedAt.UnixNano()))
	return append(k, t.ID...)
}

func getWall(tx *bbolt.Tx, wallID string) (wall.Wall, error) {
	raw := tx.Bucket(bucketWalls).Get([]byte(wallID))
	if raw == nil {
		return wall.Wall{}, store.WallNotFound(wallID)
	}
	var w wall.Wall
	if err := decode(raw, &w); err != nil {
		return wall.Wall{}, fmt.Errorf("decode wall %s: %w", wallID, err)
	}
	return w, nil
}

func (s *Store) CreateWall(_ context.Context, w wall.Wall) error {
	if err := errors.ValidateID("wall", w.ID); err != nil {
		return err
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		walls := tx.Bucket(bucketWalls)
		if walls.Get([]byte(w.ID)) != nil {
			return errors.New(errors.ErrCodeConflict, "wall %q already exists", w.ID)
		}
		data, err := encode(&w)
		if err != nil {
			return err
		}
		return walls.Put([]byte(w.ID), data)
	})
}

func (s *Store) GetWall(_ context.Context, wallID string) (w wall.Wall, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		w, err = getWall(tx, wallID)
		return err
	})
	return w, err
}

func (s *Store) ListWalls(_ context.Context, userID string) ([]wall.Wall, error) {
	type joined struct {
		w  wall.Wall
		at time.Time
	}
	var js []joined
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMembers).ForEachBucket(func(wallID []byte) error {
			raw := tx.Bucket(bucketMembers).Bucket(wallID).Get([]byte(userID))
			if raw == nil {
				return nil
			}
			var m wall.Member
			if err := decode(raw, &m); err != nil {
				return err
			}
			w, err := getWall(tx, string(wallID))
			if err != nil {
				return err
			}
			js = append(js, joined{w, m.JoinedAt})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list walls: %w", err)
	}

	slices.SortFunc(js, func(a, b joined) int { return b.at.Compare(a.at) })
	out := make([]wall.Wall, len(js))
	for i, j := range js {
		out[i] = j.w
	}
	return out, nil
}

func (s *Store) ListTiles(_ context.Context, wallID string) ([]wall.Tile, error) {
	tiles := []wall.Tile{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		if _, err := getWall(tx, wallID); err != nil {
			return err
		}
		b := tx.Bucket(bucketTiles).Bucket([]byte(wallID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var t wall.Tile
			if err := decode(v, &t); err != nil {
				return fmt.Errorf("decode tile: %w", err)
			}
			tiles = append(tiles, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tiles, nil
}

func (s *Store) InsertTiles(_ context.Context, tiles []wall.Tile) ([]wall.Tile, error) {
	prepared, err := store.PrepareTiles(tiles, s.now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		for _, t := range prepared {
			if _, err := getWall(tx, t.WallID); err != nil {
				return err
			}
			b, err := tx.Bucket(bucketTiles).CreateBucketIfNotExists([]byte(t.WallID))
			if err != nil {
				return err
			}
			data, err := encode(&t)
			if err != nil {
				return err
			}
			if err := b.Put(tileKey(t), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

func (s *Store) JoinWall(_ context.Context, wallID, userID, name, code string) (m wall.Member, err error) {
	err = s.db.Update(func(tx *bbolt.Tx) error {
		w, err := getWall(tx, wallID)
		if err != nil {
			return err
		}
		if err := store.CheckJoin(w, userID, code); err != nil {
			return err
		}
		b, err := tx.Bucket(bucketMembers).CreateBucketIfNotExists([]byte(wallID))
		if err != nil {
			return err
		}
		if raw := b.Get([]byte(userID)); raw != nil {
			return decode(raw, &m)
		}
		m = wall.Member{WallID: wallID, UserID: userID, Name: name, JoinedAt: s.now().UTC()}
		data, err := encode(&m)
		if err != nil {
			return err
		}
		return b.Put([]byte(userID), data)
	})
	if err != nil {
		return wall.Member{}, err
	}
	return m, nil
}

func (s *Store) ListMembers(_ context.Context, wallID string) ([]wall.Member, error) {
	members := []wall.Member{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		if _, err := getWall(tx, wallID); err != nil {
			return err
		}
		b := tx.Bucket(bucketMembers).Bucket([]byte(wallID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var m wall.Member
			if err := decode(v, &m); err != nil {
				return err
			}
			members = append(members, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	wall.SortMembers(members)
	return members, nil
}

func (s *Store) Ping(context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)

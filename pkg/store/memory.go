package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// Memory is a Store kept in process memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	walls   map[string]wall.Wall
	tiles   map[string][]wall.Tile
	members map[string][]wall.Member
	now     func() time.Time
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{
		walls:   make(map[string]wall.Wall),
		tiles:   make(map[string][]wall.Tile),
		members: make(map[string][]wall.Member),
		now:     time.Now,
	}
}

func (m *Memory) CreateWall(_ context.Context, w wall.Wall) error {
	if err := errors.ValidateID("wall", w.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.walls[w.ID]; ok {
		return errors.New(errors.ErrCodeConflict, "wall %q already exists", w.ID)
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = m.now().UTC()
	}
	m.walls[w.ID] = w
	return nil
}

func (m *Memory) GetWall(_ context.Context, wallID string) (wall.Wall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.walls[wallID]
	if !ok {
		return wall.Wall{}, WallNotFound(wallID)
	}
	return w, nil
}

func (m *Memory) ListWalls(_ context.Context, userID string) ([]wall.Wall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type joined struct {
		w  wall.Wall
		at time.Time
	}
	var js []joined
	for wallID, members := range m.members {
		for _, mem := range members {
			if mem.UserID == userID {
				js = append(js, joined{m.walls[wallID], mem.JoinedAt})
			}
		}
	}
	slices.SortFunc(js, func(a, b joined) int { return b.at.Compare(a.at) })

	out := make([]wall.Wall, len(js))
	for i, j := range js {
		out[i] = j.w
	}
	return out, nil
}

func (m *Memory) ListTiles(_ context.Context, wallID string) ([]wall.Tile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.walls[wallID]; !ok {
		return nil, WallNotFound(wallID)
	}
	out := slices.Clone(m.tiles[wallID])
	wall.SortNewestFirst(out)
	return out, nil
}

func (m *Memory) InsertTiles(_ context.Context, tiles []wall.Tile) ([]wall.Tile, error) {
	prepared, err := PrepareTiles(tiles, m.now().UTC())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range prepared {
		if _, ok := m.walls[t.WallID]; !ok {
			return nil, WallNotFound(t.WallID)
		}
	}
	for _, t := range prepared {
		m.tiles[t.WallID] = append(m.tiles[t.WallID], t)
	}
	return prepared, nil
}

func (m *Memory) JoinWall(_ context.Context, wallID, userID, name, code string) (wall.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.walls[wallID]
	if !ok {
		return wall.Member{}, WallNotFound(wallID)
	}
	if err := CheckJoin(w, userID, code); err != nil {
		return wall.Member{}, err
	}
	for _, mem := range m.members[wallID] {
		if mem.UserID == userID {
			return mem, nil
		}
	}
	mem := wall.Member{WallID: wallID, UserID: userID, Name: name, JoinedAt: m.now().UTC()}
	m.members[wallID] = append(m.members[wallID], mem)
	return mem, nil
}

func (m *Memory) ListMembers(_ context.Context, wallID string) ([]wall.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.walls[wallID]; !ok {
		return nil, WallNotFound(wallID)
	}
	out := slices.Clone(m.members[wallID])
	wall.SortMembers(out)
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)

// Package postgres implements store.Store on PostgreSQL with sqlx and lib/pq.
//
// The schema mirrors the hosted database the web client talks to: walls,
// tiles and wall_members. [Store.Migrate] creates it when missing.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

//go:embed schema.sql
var schema string

const (
	wallColumns = `id, title, COALESCE(description, '') AS description, code,
		COALESCE(link_code, '') AS link_code, COALESCE(created_by, '') AS created_by, created_at`
	tileColumns = `id, wall_id, COALESCE(user_id, '') AS user_id, type,
		COALESCE(file_url, '') AS file_url, COALESCE(thumb_url, '') AS thumb_url,
		COALESCE(text_content, '') AS text_content, file_width, file_height, created_at`
	memberColumns = `wall_id, user_id, COALESCE(name, '') AS name, joined_at`
)

// Postgres error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an open database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) CreateWall(ctx context.Context, w wall.Wall) error {
	if err := errors.ValidateID("wall", w.ID); err != nil {
		return err
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO walls (id, title, description, code, link_code, created_by, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)`,
		w.ID, w.Title, w.Description, w.Code, w.LinkCode, w.CreatedBy, w.CreatedAt)
	if pqCode(err) == codeUniqueViolation {
		return errors.New(errors.ErrCodeConflict, "wall %q already exists", w.ID)
	}
	if err != nil {
		return fmt.Errorf("insert wall: %w", err)
	}
	return nil
}

func (s *Store) GetWall(ctx context.Context, wallID string) (wall.Wall, error) {
	var w wall.Wall
	err := s.db.GetContext(ctx, &w, `SELECT `+wallColumns+` FROM walls WHERE id = $1`, wallID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return wall.Wall{}, store.WallNotFound(wallID)
	}
	if err != nil {
		return wall.Wall{}, fmt.Errorf("get wall: %w", err)
	}
	return w, nil
}

func (s *Store) ListWalls(ctx context.Context, userID string) ([]wall.Wall, error) {
	walls := []wall.Wall{}
	err := s.db.SelectContext(ctx, &walls,
		`SELECT w.id, w.title, COALESCE(w.description, '') AS description, w.code,
		        COALESCE(w.link_code, '') AS link_code, COALESCE(w.created_by, '') AS created_by, w.created_at
		   FROM walls w JOIN wall_members m ON m.wall_id = w.id
		  WHERE m.user_id = $1
		  ORDER BY m.joined_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list walls: %w", err)
	}
	return walls, nil
}

func (s *Store) ListTiles(ctx context.Context, wallID string) ([]wall.Tile, error) {
	tiles := []wall.Tile{}
	err := s.db.SelectContext(ctx, &tiles,
		`SELECT `+tileColumns+` FROM tiles WHERE wall_id = $1 ORDER BY created_at DESC`, wallID)
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	if len(tiles) == 0 {
		if err := s.mustExist(ctx, wallID); err != nil {
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

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range prepared {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tiles (id, wall_id, user_id, type, file_url, thumb_url, text_content,
			                    file_width, file_height, is_video, created_at)
			 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)`,
			t.ID, t.WallID, t.UserID, string(t.Kind), t.FileURL, t.ThumbURL, t.Text,
			t.Width, t.Height, t.IsVideo(), t.CreatedAt)
		if pqCode(err) == codeForeignKeyViolation {
			return nil, store.WallNotFound(t.WallID)
		}
		if err != nil {
			return nil, fmt.Errorf("insert tile: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return prepared, nil
}

func (s *Store) JoinWall(ctx context.Context, wallID, userID, name, code string) (wall.Member, error) {
	w, err := s.GetWall(ctx, wallID)
	if err != nil {
		return wall.Member{}, err
	}
	if err := store.CheckJoin(w, userID, code); err != nil {
		return wall.Member{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wall_members (wall_id, user_id, name, joined_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4)
		 ON CONFLICT (wall_id, user_id) DO NOTHING`,
		wallID, userID, name, s.now().UTC())
	if err != nil {
		return wall.Member{}, fmt.Errorf("insert member: %w", err)
	}

	var m wall.Member
	err = s.db.GetContext(ctx, &m,
		`SELECT `+memberColumns+` FROM wall_members WHERE wall_id = $1 AND user_id = $2`, wallID, userID)
	if err != nil {
		return wall.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, wallID string) ([]wall.Member, error) {
	members := []wall.Member{}
	err := s.db.SelectContext(ctx, &members,
		`SELECT `+memberColumns+` FROM wall_members WHERE wall_id = $1 ORDER BY joined_at ASC`, wallID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		if err := s.mustExist(ctx, wallID); err != nil {
			return nil, err
		}
	}
	return members, nil
}

func (s *Store) mustExist(ctx context.Context, wallID string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM walls WHERE id = $1)`, wallID); err != nil {
		return fmt.Errorf("check wall: %w", err)
	}
	if !exists {
		return store.WallNotFound(wallID)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

var _ store.Store = (*Store)(nil)

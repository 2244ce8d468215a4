// Package mongo implements store.Store on MongoDB.
//
// Walls, tiles and members live in three collections of one database.
// MongoDB stores timestamps with millisecond precision, so tiles inserted in
// the same batch may come back in any order relative to each other.
package mongo

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// DefaultDatabase is used when Open is given an empty database name.
const DefaultDatabase = "memorywall"

const (
	collWalls   = "walls"
	collTiles   = "tiles"
	collMembers = "wall_members"
)

// Store is a MongoDB-backed store.Store.
type Store struct {
	client  *mongo.Client
	walls   *mongo.Collection
	tiles   *mongo.Collection
	members *mongo.Collection
	now     func() time.Time
}

// Open connects to uri and ensures the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(10*time.Second))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect mongo")
	}
	if database == "" {
		database = DefaultDatabase
	}
	db := client.Database(database)
	s := &Store{
		client:  client,
		walls:   db.Collection(collWalls),
		tiles:   db.Collection(collTiles),
		members: db.Collection(collMembers),
		now:     time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.tiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "wall_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create tiles index: %w", err)
	}
	_, err = s.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "wall_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create members index: %w", err)
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
	_, err := s.walls.InsertOne(ctx, w)
	if mongo.IsDuplicateKeyError(err) {
		return errors.New(errors.ErrCodeConflict, "wall %q already exists", w.ID)
	}
	if err != nil {
		return fmt.Errorf("insert wall: %w", err)
	}
	return nil
}

func (s *Store) GetWall(ctx context.Context, wallID string) (wall.Wall, error) {
	var w wall.Wall
	err := s.walls.FindOne(ctx, bson.M{"_id": wallID}).Decode(&w)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return wall.Wall{}, store.WallNotFound(wallID)
	}
	if err != nil {
		return wall.Wall{}, fmt.Errorf("get wall: %w", err)
	}
	return w, nil
}

func (s *Store) ListWalls(ctx context.Context, userID string) ([]wall.Wall, error) {
	cur, err := s.members.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	var members []wall.Member
	if err := cur.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode memberships: %w", err)
	}

	walls := make([]wall.Wall, 0, len(members))
	for _, m := range members {
		w, err := s.GetWall(ctx, m.WallID)
		if errors.Is(err, errors.ErrCodeWallNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		walls = append(walls, w)
	}
	return walls, nil
}

func (s *Store) mustExist(ctx context.Context, wallID string) error {
	n, err := s.walls.CountDocuments(ctx, bson.M{"_id": wallID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check wall: %w", err)
	}
	if n == 0 {
		return store.WallNotFound(wallID)
	}
	return nil
}

func (s *Store) ListTiles(ctx context.Context, wallID string) ([]wall.Tile, error) {
	if err := s.mustExist(ctx, wallID); err != nil {
		return nil, err
	}
	cur, err := s.tiles.Find(ctx, bson.M{"wall_id": wallID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	tiles := []wall.Tile{}
	if err := cur.All(ctx, &tiles); err != nil {
		return nil, fmt.Errorf("decode tiles: %w", err)
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
	docs := make([]any, len(prepared))
	for i, t := range prepared {
		if err := s.mustExist(ctx, t.WallID); err != nil {
			return nil, err
		}
		docs[i] = t
	}
	if _, err := s.tiles.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert tiles: %w", err)
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

	filter := bson.M{"wall_id": wallID, "user_id": userID}
	update := bson.M{"$setOnInsert": wall.Member{
		WallID: wallID, UserID: userID, Name: name, JoinedAt: s.now().UTC(),
	}}
	if _, err := s.members.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return wall.Member{}, fmt.Errorf("upsert member: %w", err)
	}

	var m wall.Member
	if err := s.members.FindOne(ctx, filter).Decode(&m); err != nil {
		return wall.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, wallID string) ([]wall.Member, error) {
	if err := s.mustExist(ctx, wallID); err != nil {
		return nil, err
	}
	cur, err := s.members.Find(ctx, bson.M{"wall_id": wallID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members := []wall.Member{}
	if err := cur.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	return members, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)

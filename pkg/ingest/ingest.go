// Package ingest turns uploaded files and text into stored tiles.
//
// Every file in a batch becomes an image or video tile carrying the batch's
// text as a caption. A batch with text and no files becomes a single text
// tile. A file whose upload fails is skipped; the rest of the batch goes on.
// Media dimensions are normalised to [wall.UploadWidth] before they are
// stored.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/memorywall/pkg/blob"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// DefaultConcurrency bounds parallel blob uploads.
const DefaultConcurrency = 4

// File is one uploaded file.
type File struct {
	Name        string
	ContentType string // guessed from Name when empty
	Data        []byte
	// Width and Height give a video's frame size; images are measured.
	Width, Height int
	// Thumb is an optional JPEG poster frame for videos.
	Thumb []byte
}

// ReadFile loads a file from disk.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	name := filepath.Base(path)
	return File{Name: name, ContentType: blob.ContentType(name), Data: data}, nil
}

// Request is one upload batch.
type Request struct {
	WallID string
	UserID string
	Text   string
	Files  []File
}

// Skipped records a file that was not stored.
type Skipped struct {
	Name string
	Err  error
}

// Result reports what an upload stored.
type Result struct {
	Tiles   []wall.Tile
	Skipped []Skipped
}

// Uploader stores files in a blob store and their tiles in a wall store.
type Uploader struct {
	Store       store.Store
	Blobs       blob.Store
	Publisher   notify.Publisher // optional
	Logger      *log.Logger
	Concurrency int
}

// Upload stores req. It fails only when the request is invalid or the tile
// insert fails; individual file failures are reported in Result.Skipped.
func (u *Uploader) Upload(ctx context.Context, req Request) (Result, error) {
	logger := u.Logger
	if logger == nil {
		logger = log.Default()
	}
	if err := errors.ValidateID("wall", req.WallID); err != nil {
		return Result{}, err
	}
	if err := errors.ValidateID("user", req.UserID); err != nil {
		return Result{}, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Files) == 0 {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "nothing to upload: no files and no text")
	}
	if _, err := u.Store.GetWall(ctx, req.WallID); err != nil {
		return Result{}, err
	}

	tiles := make([]*wall.Tile, len(req.Files))
	failures := make([]error, len(req.Files))

	g, gctx := errgroup.WithContext(ctx)
	limit := u.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, f := range req.Files {
		g.Go(func() error {
			t, err := u.uploadFile(gctx, req, text, f)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("skipping file", "file", f.Name, "err", err)
				failures[i] = err
				return nil
			}
			tiles[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	var inserts []wall.Tile
	for i, t := range tiles {
		if t == nil {
			res.Skipped = append(res.Skipped, Skipped{Name: req.Files[i].Name, Err: failures[i]})
			continue
		}
		inserts = append(inserts, *t)
	}
	if len(req.Files) == 0 {
		inserts = append(inserts, wall.Tile{
			WallID: req.WallID, UserID: req.UserID, Kind: wall.KindText, Text: text,
		})
	}
	if len(inserts) == 0 {
		return res, nil
	}

	stored, err := u.Store.InsertTiles(ctx, inserts)
	if err != nil {
		return res, fmt.Errorf("insert tiles: %w", err)
	}
	res.Tiles = stored
	logger.Info("uploaded tiles", "wall", req.WallID, "tiles", len(stored), "skipped", len(res.Skipped))

	if u.Publisher != nil {
		if err := notify.PublishAll(ctx, u.Publisher, notify.InsertEvents(stored)); err != nil {
			logger.Warn("publishing tile events failed", "wall", req.WallID, "err", err)
		}
	}
	return res, nil
}

func (u *Uploader) uploadFile(ctx context.Context, req Request, text string, f File) (wall.Tile, error) {
	if len(f.Data) == 0 {
		return wall.Tile{}, errors.New(errors.ErrCodeInvalidInput, "%s is empty", f.Name)
	}
	key, err := blob.NewKey(req.WallID, f.Name)
	if err != nil {
		return wall.Tile{}, err
	}
	ct := f.ContentType
	if ct == "" {
		ct = blob.ContentType(f.Name)
	}

	t := wall.Tile{WallID: req.WallID, UserID: req.UserID, Kind: wall.KindImage, Text: text}
	w, h := f.Width, f.Height
	if blob.IsVideo(ct) {
		t.Kind = wall.KindVideo
	} else if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
		w, h = cfg.Width, cfg.Height
	}
	if w > 0 && h > 0 {
		sw, sh, err := wall.ScaleToWidth(w, h)
		if err != nil {
			return wall.Tile{}, err
		}
		t.Width, t.Height = wall.Dim(sw), wall.Dim(sh)
	}

	if err := u.Blobs.Put(ctx, key, ct, bytes.NewReader(f.Data)); err != nil {
		return wall.Tile{}, err
	}
	t.FileURL = u.Blobs.PublicURL(key)

	if t.Kind == wall.KindVideo && len(f.Thumb) > 0 {
		thumb := blob.ThumbKey(key)
		if err := u.Blobs.Put(ctx, thumb, "image/jpeg", bytes.NewReader(f.Thumb)); err == nil {
			t.ThumbURL = u.Blobs.PublicURL(thumb)
		}
	}
	return t, nil
}

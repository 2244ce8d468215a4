package ingest

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memorywall/pkg/blob"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// flakyBlobs fails every Put whose key ends in failSuffix.
type flakyBlobs struct {
	*blob.Memory
	failSuffix string
}

func (f flakyBlobs) Put(ctx context.Context, key, ct string, body io.Reader) error {
	if f.failSuffix != "" && strings.HasSuffix(key, f.failSuffix) {
		return stderrors.New("storage unavailable")
	}
	return f.Memory.Put(ctx, key, ct, body)
}

type recorder struct{ events []notify.Event }

func (r *recorder) Publish(_ context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func setup(t *testing.T, failSuffix string) (*Uploader, *store.Memory, *blob.Memory, *recorder) {
	t.Helper()
	st := store.NewMemory()
	if err := st.CreateWall(context.Background(), wall.Wall{ID: "w1", Title: "Trip", Code: "123456"}); err != nil {
		t.Fatal(err)
	}
	mem := blob.NewMemory()
	rec := &recorder{}
	u := &Uploader{
		Store:     st,
		Blobs:     flakyBlobs{Memory: mem, failSuffix: failSuffix},
		Publisher: rec,
		Logger:    log.New(io.Discard),
	}
	return u, st, mem, rec
}

func TestUploadFilesCarryCaption(t *testing.T) {
	u, st, mem, rec := setup(t, "")
	ctx := context.Background()

	res, err := u.Upload(ctx, Request{
		WallID: "w1", UserID: "u1", Text: "  beach day ",
		Files: []File{
			{Name: "a.png", Data: pngBytes(t, 1000, 750)},
			{Name: "b.mp4", Data: []byte("video"), Width: 1920, Height: 1080, Thumb: []byte("jpeg")},
		},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(res.Tiles) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("result = %+v", res)
	}

	img, vid := res.Tiles[0], res.Tiles[1]
	if img.Kind != wall.KindImage || img.Text != "beach day" {
		t.Errorf("image tile = %+v", img)
	}
	if w, h := img.Size(); w != 500 || h != 375 {
		t.Errorf("image size = %dx%d, want 500x375", w, h)
	}
	if vid.Kind != wall.KindVideo || vid.ThumbURL == "" || !strings.HasSuffix(vid.ThumbURL, "-thumb.jpg") {
		t.Errorf("video tile = %+v", vid)
	}
	if w, h := vid.Size(); w != 500 || h != 281 {
		t.Errorf("video size = %dx%d, want 500x281", w, h)
	}
	if mem.Len() != 3 {
		t.Errorf("stored %d blobs, want 3", mem.Len())
	}
	if !strings.HasPrefix(img.FileURL, "memory://w1/") {
		t.Errorf("file URL = %q", img.FileURL)
	}

	tiles, _ := st.ListTiles(ctx, "w1")
	if len(tiles) != 2 {
		t.Errorf("store has %d tiles", len(tiles))
	}
	if len(rec.events) != 2 || rec.events[0].WallID != "w1" || rec.events[0].Kind != notify.KindInsert {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestUploadTextOnly(t *testing.T) {
	u, _, mem, _ := setup(t, "")
	res, err := u.Upload(context.Background(), Request{WallID: "w1", UserID: "u1", Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tiles) != 1 || res.Tiles[0].Kind != wall.KindText || res.Tiles[0].Dimensioned() {
		t.Errorf("tiles = %+v", res.Tiles)
	}
	if mem.Len() != 0 {
		t.Error("text tile should not store blobs")
	}
}

func TestUploadSkipsFailedFiles(t *testing.T) {
	u, st, _, _ := setup(t, ".gif")
	res, err := u.Upload(context.Background(), Request{
		WallID: "w1", UserID: "u1", Text: "caption",
		Files: []File{
			{Name: "ok.png", Data: pngBytes(t, 10, 20)},
			{Name: "broken.gif", Data: []byte("GIF89a")},
			{Name: "empty.png"},
		},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(res.Tiles) != 1 || len(res.Skipped) != 2 {
		t.Fatalf("tiles=%d skipped=%d", len(res.Tiles), len(res.Skipped))
	}
	if res.Skipped[0].Name != "broken.gif" || res.Skipped[1].Name != "empty.png" {
		t.Errorf("skipped = %+v", res.Skipped)
	}
	// A batch with files never adds a separate text tile.
	tiles, _ := st.ListTiles(context.Background(), "w1")
	if len(tiles) != 1 || tiles[0].Kind != wall.KindImage {
		t.Errorf("store tiles = %+v", tiles)
	}
}

func TestUploadAllFilesFail(t *testing.T) {
	u, st, _, rec := setup(t, ".png")
	res, err := u.Upload(context.Background(), Request{
		WallID: "w1", UserID: "u1", Text: "caption",
		Files:  []File{{Name: "a.png", Data: pngBytes(t, 4, 4)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tiles) != 0 || len(res.Skipped) != 1 || len(rec.events) != 0 {
		t.Errorf("result = %+v events=%d", res, len(rec.events))
	}
	tiles, _ := st.ListTiles(context.Background(), "w1")
	if len(tiles) != 0 {
		t.Errorf("store has %d tiles, want 0", len(tiles))
	}
}

func TestUploadRejects(t *testing.T) {
	u, _, _, _ := setup(t, "")
	ctx := context.Background()
	tests := []struct {
		name string
		req  Request
		want errors.Code
	}{
		{"empty batch", Request{WallID: "w1", UserID: "u1", Text: "   "}, errors.ErrCodeInvalidInput},
		{"no user", Request{WallID: "w1", Text: "x"}, errors.ErrCodeInvalidInput},
		{"unknown wall", Request{WallID: "nope", UserID: "u1", Text: "x"}, errors.ErrCodeWallNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := u.Upload(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Upload error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	if _, err := ReadFile("/definitely/missing.png"); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("ReadFile error = %v", err)
	}
}

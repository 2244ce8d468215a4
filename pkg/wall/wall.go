package wall

import (
	"cmp"
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/memorywall/pkg/errors"
)

// Kind is the content type of a tile.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindText  Kind = "text"
)

// Kinds lists every valid kind.
var Kinds = []Kind{KindImage, KindVideo, KindText}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Kinds, k) {
		return "", errors.New(errors.ErrCodeInvalidTile, "unknown tile type %q", s)
	}
	return k, nil
}

// Tile is one contribution to a wall.
type Tile struct {
	ID        string    `json:"id,omitempty" db:"id" bson:"_id,omitempty" yaml:"id,omitempty"`
	WallID    string    `json:"wall_id,omitempty" db:"wall_id" bson:"wall_id" yaml:"wall_id,omitempty"`
	UserID    string    `json:"user_id,omitempty" db:"user_id" bson:"user_id" yaml:"user_id,omitempty"`
	Kind      Kind      `json:"type" db:"type" bson:"type" yaml:"type"`
	FileURL   string    `json:"file_url,omitempty" db:"file_url" bson:"file_url,omitempty" yaml:"file_url,omitempty"`
	ThumbURL  string    `json:"thumb_url,omitempty" db:"thumb_url" bson:"thumb_url,omitempty" yaml:"thumb_url,omitempty"`
	Text      string    `json:"text_content,omitempty" db:"text_content" bson:"text_content,omitempty" yaml:"text,omitempty"`
	Width     *int      `json:"file_width,omitempty" db:"file_width" bson:"file_width,omitempty" yaml:"width,omitempty"`
	Height    *int      `json:"file_height,omitempty" db:"file_height" bson:"file_height,omitempty" yaml:"height,omitempty"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at" yaml:"created_at,omitempty"`
}

// IsVideo mirrors the is_video column.
func (t Tile) IsVideo() bool { return t.Kind == KindVideo }

// Dimensioned reports whether the tile has positive pixel dimensions.
func (t Tile) Dimensioned() bool {
	return t.Width != nil && t.Height != nil && *t.Width > 0 && *t.Height > 0
}

// Size returns the tile dimensions, or zeros for undimensioned tiles.
func (t Tile) Size() (w, h int) {
	if !t.Dimensioned() {
		return 0, 0
	}
	return *t.Width, *t.Height
}

// Validate checks that the tile is well formed for its kind.
// Text tiles need a body; image and video tiles need positive dimensions
// when dimensions are present at all.
func (t Tile) Validate() error {
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}
	if t.Kind == KindText && strings.TrimSpace(t.Text) == "" {
		return errors.New(errors.ErrCodeInvalidTile, "text tile %q has no content", t.ID)
	}
	if (t.Width != nil && *t.Width <= 0) || (t.Height != nil && *t.Height <= 0) {
		return errors.New(errors.ErrCodeInvalidTile, "tile %q has non-positive dimensions", t.ID)
	}
	return nil
}

// Dim is a convenience for building *int dimensions.
func Dim(v int) *int { return &v }

// NewTileID returns a fresh random tile identifier.
func NewTileID() string { return uuid.NewString() }

// SortNewestFirst orders tiles by CreatedAt descending. Ties keep their
// relative order.
func SortNewestFirst(tiles []Tile) {
	slices.SortStableFunc(tiles, func(a, b Tile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// FilterDimensioned returns the tiles that have positive dimensions, in
// order, and how many were dropped.
func FilterDimensioned(tiles []Tile) ([]Tile, int) {
	kept := make([]Tile, 0, len(tiles))
	for _, t := range tiles {
		if t.Dimensioned() {
			kept = append(kept, t)
		}
	}
	return kept, len(tiles) - len(kept)
}

// UploadWidth is the fixed width every uploaded asset is scaled to.
const UploadWidth = 500

// ScaleToWidth scales w x h to UploadWidth, preserving the aspect ratio and
// truncating the height. The height never drops below 1.
func ScaleToWidth(w, h int) (int, int, error) {
	if w <= 0 || h <= 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidTile, "cannot scale %dx%d", w, h)
	}
	scaled := h * UploadWidth / w
	return UploadWidth, max(1, scaled), nil
}

// Wall is a shared collection of tiles.
type Wall struct {
	ID          string    `json:"id" db:"id" bson:"_id" yaml:"id"`
	Title       string    `json:"title" db:"title" bson:"title" yaml:"title"`
	Description string    `json:"description,omitempty" db:"description" bson:"description,omitempty" yaml:"description,omitempty"`
	Code        string    `json:"code,omitempty" db:"code" bson:"code" yaml:"code,omitempty"`
	LinkCode    string    `json:"link_code,omitempty" db:"link_code" bson:"link_code,omitempty" yaml:"link_code,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty" db:"created_by" bson:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" bson:"created_at" yaml:"created_at,omitempty"`
}

// Accepts reports whether code unlocks the wall. Either the numeric code or
// the link code is accepted.
func (w Wall) Accepts(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	return code == w.Code || (w.LinkCode != "" && code == w.LinkCode)
}

// NewWall builds a wall with fresh identifiers and join codes.
func NewWall(title, description, createdBy string) (Wall, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Wall{}, errors.New(errors.ErrCodeInvalidInput, "wall title cannot be empty")
	}
	code, err := NewCode()
	if err != nil {
		return Wall{}, err
	}
	return Wall{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Code:        code,
		LinkCode:    NewLinkCode(),
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NewCode returns a six-digit join code in [100000, 999999].
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "generate join code")
	}
	return fmt.Sprintf("%d", 100000+n.Int64()), nil
}

// NewLinkCode returns a 12-character code for shareable join links.
func NewLinkCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Member links a user to a wall.
type Member struct {
	WallID   string    `json:"wall_id" db:"wall_id" bson:"wall_id" yaml:"wall_id"`
	UserID   string    `json:"user_id" db:"user_id" bson:"user_id" yaml:"user_id"`
	Name     string    `json:"name,omitempty" db:"name" bson:"name,omitempty" yaml:"name,omitempty"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at" bson:"joined_at" yaml:"joined_at,omitempty"`
}

// SortMembers orders members by join time, oldest first.
func SortMembers(members []Member) {
	slices.SortStableFunc(members, func(a, b Member) int {
		return cmp.Compare(a.JoinedAt.UnixNano(), b.JoinedAt.UnixNano())
	})
}

package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/memorywall/pkg/blob"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/ingest"
	"github.com/matzehuels/memorywall/pkg/pipeline"
	"github.com/matzehuels/memorywall/pkg/wall"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Liveness())
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := s.health.Readiness(r.Context())
	code := http.StatusOK
	if !status.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// options starts from the server defaults and applies the strategy and
// columns query parameters.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	q := r.URL.Query()
	if v := q.Get("strategy"); v != "" {
		opts.Strategy = v
	}
	if v := q.Get("columns"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "columns must be an integer, got %q", v)
		}
		if n < 1 {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "numColumns must be >= 1, got %d", n)
		}
		opts.Columns = n
	}
	if v := q.Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "refresh must be a boolean, got %q", v)
		}
		opts.Refresh = refresh
	}
	opts.Logger = s.logger
	return opts, nil
}

func (s *Server) handleWallLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.LayoutWall(r.Context(), chi.URLParam(r, "wallID"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// layoutRequest is the body of POST /layout.
type layoutRequest struct {
	Tiles    []wall.Tile `json:"tiles"`
	Strategy string      `json:"strategy,omitempty"`
	// Columns is a pointer so that an explicit 0 is rejected rather than
	// read as "derive from the tile count".
	Columns *int `json:"columns,omitempty"`
}

func (s *Server) handleLayoutTiles(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	for i, t := range req.Tiles {
		if err := t.Validate(); err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidTile, err, "tile %d", i))
			return
		}
	}

	opts := s.defaults
	opts.Logger = s.logger
	if req.Strategy != "" {
		opts.Strategy = req.Strategy
	}
	if req.Columns != nil {
		if *req.Columns < 1 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidConfig, "numColumns must be >= 1, got %d", *req.Columns))
			return
		}
		opts.Columns = *req.Columns
	}

	res, err := s.runner.LayoutTiles(r.Context(), req.Tiles, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// joinRequest is the body of POST /walls/{wallID}/join.
type joinRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Code   string `json:"code"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.store.JoinWall(r.Context(), chi.URLParam(r, "wallID"), req.UserID, req.Name, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// uploadResponse is the body answering POST /walls/{wallID}/tiles.
type uploadResponse struct {
	Tiles   []wall.Tile    `json:"tiles"`
	Skipped []skippedEntry `json:"skipped,omitempty"`
}

type skippedEntry struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "uploads are not enabled"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := ingest.Request{
		WallID: chi.URLParam(r, "wallID"),
		UserID: r.FormValue("user_id"),
		Text:   r.FormValue("text"),
	}
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := readPart(fh)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.Files = append(req.Files, f)
	}

	res, err := s.uploader.Upload(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := uploadResponse{Tiles: res.Tiles}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, skippedEntry{Name: sk.Name, Error: errors.UserMessage(sk.Err)})
	}
	writeJSON(w, http.StatusCreated, out)
}

func readPart(fh *multipart.FileHeader) (ingest.File, error) {
	f, err := fh.Open()
	if err != nil {
		return ingest.File{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return ingest.File{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", fh.Filename)
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = blob.ContentType(fh.Filename)
	}
	return ingest.File{Name: fh.Filename, ContentType: ct, Data: data}, nil
}

// maxJSONBytes bounds JSON request bodies.
const maxJSONBytes = 8 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// tileFile is the document read by "layout FILE". A bare list of tiles is
// accepted as well.
type tileFile struct {
	Tiles []wall.Tile `json:"tiles" yaml:"tiles"`
}

// readTiles loads tiles from a JSON or YAML file, chosen by extension.
// Tiles are validated and returned in file order.
func readTiles(path string) ([]wall.Tile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}

	var tiles []wall.Tile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		tiles, err = decodeYAMLTiles(data)
	case ".json", "":
		tiles, err = decodeJSONTiles(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported tile file %q (want .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
	}

	for i, t := range tiles {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s: tile %d: %w", path, i, err)
		}
	}
	return tiles, nil
}

func decodeJSONTiles(data []byte) ([]wall.Tile, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var tiles []wall.Tile
		err := json.Unmarshal(data, &tiles)
		return tiles, err
	}
	var f tileFile
	err := json.Unmarshal(data, &f)
	return f.Tiles, err
}

func decodeYAMLTiles(data []byte) ([]wall.Tile, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var tiles []wall.Tile
		err := node.Decode(&tiles)
		return tiles, err
	}
	var f tileFile
	err := node.Decode(&f)
	return f.Tiles, err
}

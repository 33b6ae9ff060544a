package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Source fetches map containers. Fetch may block; loaders call it off the
// game loop goroutine.
type Source interface {
	Fetch(ctx context.Context, mapID int32) (*MapData, error)
}

// FileSource reads map containers from dir, one file per map named by
// printf(pattern, mapID).
type FileSource struct {
	dir     string
	pattern string
}

func NewFileSource(dir, pattern string) *FileSource {
	return &FileSource{dir: dir, pattern: pattern}
}

// Path returns the container file path for a map.
func (s *FileSource) Path(mapID int32) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.pattern, mapID))
}

func (s *FileSource) Fetch(ctx context.Context, mapID int32) (*MapData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(mapID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("map %d (%s): %w", mapID, path, ErrMapNotFound)
		}
		return nil, fmt.Errorf("read map %d: %w", mapID, err)
	}
	m, err := DecodeMap(raw)
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", mapID, err)
	}
	switch m.MapID {
	case 0:
		m.MapID = mapID
	case mapID:
	default:
		return nil, fmt.Errorf("map %d: file %s declares map_id %d", mapID, path, m.MapID)
	}
	return m, nil
}

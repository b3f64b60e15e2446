// Package artifact owns the on-disk pitch data artifacts: file naming,
// atomic publication, and the sqlite catalog of artifact metadata the
// planner queries instead of probing the filesystem.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// FilePrefix starts every artifact file name.
const FilePrefix = "PitchData"

// Store reads and writes artifact files under one base directory.
// Writes are atomic: the new content is staged in a temporary file and
// renamed into place, so an observer sees either the prior complete
// artifact or the new one, never a partial file.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: log.With().Str("component", "artifact-store").Logger(),
	}, nil
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// DailyFileName names the non-batted-ball artifact for one game date.
func DailyFileName(d statcast.Date) string {
	return fmt.Sprintf("%s.NonBBE.%s.csv", FilePrefix, d)
}

// CumulativeFileName names the season's batted-ball artifact.
func CumulativeFileName(season int, gt statcast.GameType) string {
	return fmt.Sprintf("%s.BBE.%d.%s.csv", FilePrefix, season, gt.Word())
}

// MasterFileName names the consolidated season artifact.
func MasterFileName(season int, gt statcast.GameType) string {
	return fmt.Sprintf("%s.%d.%s.csv", FilePrefix, season, gt.Word())
}

// Path returns the full path for an artifact file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether the named artifact file is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// ReadDataset loads an artifact file.
func (s *Store) ReadDataset(name string) (*statcast.Dataset, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	defer f.Close()

	ds, err := statcast.DecodeDataset(f)
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", name, err)
	}
	return ds, nil
}

// WriteDataset atomically publishes a dataset under the given name.
// On any failure the previously published artifact is left untouched.
func (s *Store) WriteDataset(name string, ds *statcast.Dataset) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("stage artifact %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if err := ds.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact %s: %w", name, err)
	}

	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact %s: %w", name, err)
	}

	s.logger.Debug().
		Str("artifact", name).
		Int("rows", ds.Len()).
		Msg("Artifact published")

	return nil
}

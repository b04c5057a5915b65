package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/example/chirpolly/pkg/models"
)

// FileStore keeps one JSON file per learner in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file holding a learner's snapshot.
func (s *FileStore) Path(learnerID int64) string {
	return filepath.Join(s.dir, KeyPrefix+"-"+strconv.FormatInt(learnerID, 10)+".json")
}

func (s *FileStore) Load(_ context.Context, learnerID int64) ([]models.VocabularyItem, error) {
	return ReadFile(s.Path(learnerID))
}

func (s *FileStore) Save(_ context.Context, learnerID int64, items []models.VocabularyItem) error {
	return WriteFile(s.Path(learnerID), items)
}

// ReadFile decodes the snapshot at path.
func ReadFile(path string) ([]models.VocabularyItem, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(raw, "")
}

// WriteFile replaces the snapshot at path. Readers never see a partial file.
func WriteFile(path string, items []models.VocabularyItem) error {
	raw, err := Encode(items)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

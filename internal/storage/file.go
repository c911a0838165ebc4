package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"sco-server/internal/snapshot"
)

const snapshotExt = ".sco"

// FileStore writes each game to <dir>/<id>.sco. Saves go to a temporary file
// first and are renamed into place, so a crash never leaves a torn snapshot.
type FileStore struct {
	dir   string
	codec *snapshot.Codec
}

func OpenFileStore(dir string, codec *snapshot.Codec) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir, codec: codec}, nil
}

func (f *FileStore) path(gameID string) (string, error) {
	if gameID == "" || strings.ContainsAny(gameID, `/\`) || strings.HasPrefix(gameID, ".") {
		return "", fmt.Errorf("invalid game id %q", gameID)
	}
	return filepath.Join(f.dir, gameID+snapshotExt), nil
}

func (f *FileStore) Save(_ context.Context, s *snapshot.Snapshot) error {
	path, err := f.path(s.Game.ID)
	if err != nil {
		return err
	}
	data, err := f.codec.Encode(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context, gameID string) (*snapshot.Snapshot, error) {
	path, err := f.path(gameID)
	if err != nil {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f.codec.Decode(data)
}

func (f *FileStore) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}
	slices.Sort(ids)
	return ids, nil
}

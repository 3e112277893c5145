package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

// File хранит пару JSON-документом {"access_token":..,"refresh_token":..}.
// Запись атомарная: временный файл в том же каталоге + rename.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile создаёт каталог под файл (если нужно) и возвращает хранилище.
func NewFile(path string) (*File, error) {
	const op = "tokenstore.NewFile"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &File{path: path}, nil
}

func (f *File) Save(_ context.Context, pair models.TokenPair) error {
	const op = "tokenstore.File.Save"

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()

	// Если rename не случился, временный файл убираем.
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) Load(_ context.Context) (models.TokenPair, bool, error) {
	const op = "tokenstore.File.Load"

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.TokenPair{}, false, nil
	}
	if err != nil {
		return models.TokenPair{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return models.TokenPair{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return pair, !pair.Empty(), nil
}

func (f *File) Clear(_ context.Context) error {
	const op = "tokenstore.File.Clear"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) Close() error { return nil }

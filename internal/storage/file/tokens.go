// file реализует storage.TokenStore поверх JSON-файлов: один файл на аккаунт.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
)

// Storage хранит пары в файлах {accessToken, idToken, refreshToken}.
// Путь к файлу аккаунта: явный из paths, иначе <dir>/<accountID>.json.
type Storage struct {
	dir   string
	paths map[string]string
}

// New создаёт файловое хранилище. paths может быть nil.
func New(dir string, paths map[string]string) *Storage {
	cp := make(map[string]string, len(paths))
	for id, p := range paths {
		if p != "" {
			cp[id] = p
		}
	}

	return &Storage{dir: dir, paths: cp}
}

// Path возвращает путь к файлу токенов аккаунта.
func (s *Storage) Path(accountID string) string {
	if p, ok := s.paths[accountID]; ok {
		return p
	}

	return filepath.Join(s.dir, accountID+".json")
}

// Load читает и проверяет пару аккаунта.
func (s *Storage) Load(_ context.Context, accountID string) (models.TokenPair, error) {
	const op = "storage.file.Load"

	path := s.Path(accountID)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.TokenPair{}, fmt.Errorf("%s: token file %s not found: %w", op, path, storage.ErrCorruptState)
		}
		return models.TokenPair{}, fmt.Errorf("%s: read %s: %v: %w", op, path, err, storage.ErrCorruptState)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: parse %s: %v: %w", op, path, err, storage.ErrCorruptState)
	}

	return storage.CheckPair(op, pair)
}

// Save атомарно заменяет файл аккаунта: запись во временный файл
// в том же каталоге, fsync и rename поверх старого.
func (s *Storage) Save(_ context.Context, accountID string, pair models.TokenPair) error {
	const op = "storage.file.Save"

	path := s.Path(accountID)

	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: marshal: %v: %w", op, err, storage.ErrPersistence)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%s: mkdir %s: %v: %w", op, dir, err, storage.ErrPersistence)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: create temp: %v: %w", op, err, storage.ErrPersistence)
	}
	tmpName := tmp.Name()

	// Временный файл удаляется при любой ошибке до rename.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: write: %v: %w", op, err, storage.ErrPersistence)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: chmod: %v: %w", op, err, storage.ErrPersistence)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: sync: %v: %w", op, err, storage.ErrPersistence)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: close: %v: %w", op, err, storage.ErrPersistence)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: rename: %v: %w", op, err, storage.ErrPersistence)
	}
	committed = true

	return nil
}

// Close ничего не делает: файлы не держатся открытыми.
func (s *Storage) Close() error { return nil }

// Проверка на соответствие интерфейсу TokenStore.
var _ storage.TokenStore = (*Storage)(nil)

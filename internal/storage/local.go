package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/filex"
	"github.com/kwarc/cheatsheets/internal/logging"
)

// LocalStore keeps documents in a directory.
type LocalStore struct {
	root   string
	logger logging.Logger
}

// NewLocalStore creates root if needed. An empty root means storage is not
// configured.
func NewLocalStore(root string, l logging.Logger) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, common.ErrorStorageNotConfigured
	}
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	return &LocalStore{root: abs, logger: l.With("module", "storage", "backend", "local")}, nil
}

// Root returns the absolute storage root.
func (s *LocalStore) Root() string {
	return s.root
}

// resolve maps name to a path strictly inside the root.
func (s *LocalStore) resolve(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, name)
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", common.ErrorPathEscape, name)
	}
	return p, nil
}

func (s *LocalStore) Replace(ctx context.Context, prefix, name string, data []byte) (bool, error) {
	if _, err := s.resolve(name); err != nil {
		return false, err
	}
	if err := ValidateName(prefix); err != nil {
		return false, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return false, fmt.Errorf("list storage: %w", err)
	}
	replaced := false
	for _, e := range entries {
		if e.IsDir() || !slotMember(prefix, e.Name()) {
			continue
		}
		removed, err := filex.RemoveIfExists(filepath.Join(s.root, e.Name()))
		if err != nil {
			return replaced, fmt.Errorf("remove previous %s: %w", e.Name(), err)
		}
		if removed {
			s.logger.Info(ctx, "removed previous version", "file", e.Name())
			replaced = true
		}
	}

	if err := filex.WriteAtomic(s.root, name, data); err != nil {
		return replaced, fmt.Errorf("write %s: %w", name, err)
	}
	return replaced, nil
}

func (s *LocalStore) Remove(ctx context.Context, name string) (bool, error) {
	p, err := s.resolve(name)
	if err != nil {
		s.logger.Error(ctx, "refusing to delete outside storage root", "file", name)
		return false, err
	}
	return filex.RemoveIfExists(p)
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

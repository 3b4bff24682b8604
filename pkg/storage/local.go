package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore keeps run artifacts under a directory. Keys are slash separated
// and must stay inside Root.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

// resolve maps a key to a file path, rejecting absolute keys and ".." escapes.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if key == "" || clean == "/" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean[1:])), nil
}

// Put writes through a temp file and rename, so a report is either complete or absent.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".snipesync-*")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	src, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(src)
}

// List returns the keys under prefix in lexical order. Staging files are hidden.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	dir := s.Root
	if p := strings.Trim(prefix, "/"); p != "" {
		var err error
		if dir, err = s.resolve(p); err != nil {
			return nil, err
		}
	}

	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".snipesync-") {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return ctx.Err()
	})
	sort.Strings(keys)
	return keys, err
}

package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/peterbourgon/diskv/v3"
)

// DiskvRepository stores each entry as a file named after its key.
type DiskvRepository struct {
	d *diskv.Diskv
}

var _ Repository = (*DiskvRepository)(nil)

// NewDiskvRepository creates a repository rooted at basePath. Files are
// written with 0600 permissions since they hold credentials.
func NewDiskvRepository(basePath string) *DiskvRepository {
	return &DiskvRepository{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})}
}

func (r *DiskvRepository) Get(_ context.Context, key string) ([]byte, error) {
	value, err := r.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session entry[%s]: %w", key, err)
	}
	return value, nil
}

func (r *DiskvRepository) Set(_ context.Context, key string, value []byte) error {
	if err := r.d.Write(key, value); err != nil {
		return fmt.Errorf("failed to set session entry[%s]: %w", key, err)
	}
	return nil
}

func (r *DiskvRepository) SetAll(ctx context.Context, entries map[string][]byte) error {
	for key, value := range entries {
		if err := r.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *DiskvRepository) Delete(_ context.Context, key string) error {
	err := r.d.Erase(key)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session entry[%s]: %w", key, err)
	}
	return nil
}

func (r *DiskvRepository) Clear(_ context.Context) error {
	if err := r.d.EraseAll(); err != nil {
		return fmt.Errorf("failed to clear session entries: %w", err)
	}
	return nil
}

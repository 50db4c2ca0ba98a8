package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
)

// FileStore keeps one bundle per pass under Dir, named
// {passTypeId}_{serialNumber}.pkpass.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create passes dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) Path(passTypeID, serialNumber string) (string, error) {
	for _, part := range []string{passTypeID, serialNumber} {
		if part == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return "", fmt.Errorf("invalid bundle key %q", part)
		}
	}
	return filepath.Join(s.Dir, passTypeID+"_"+serialNumber+pkpass.Extension), nil
}

// Write replaces the bundle atomically: data goes to a temporary file in the
// same directory which is then renamed over the target.
func (s *FileStore) Write(ctx context.Context, passTypeID, serialNumber string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.Path(passTypeID, serialNumber)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, ".bundle-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename bundle: %w", err)
	}
	return nil
}

// Read returns the whole bundle. A missing bundle yields an error wrapping
// os.ErrNotExist.
func (s *FileStore) Read(ctx context.Context, passTypeID, serialNumber string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(passTypeID, serialNumber)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return b, nil
}

// Package storage keeps uploaded document bytes in an afero filesystem and derives their
// object paths.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var _ ObjectStore = (*Store)(nil)

// ObjectStore is the document storage contract.
type ObjectStore interface {
	// Upload writes the object at objectPath and returns its cleaned path and size.
	Upload(ctx context.Context, objectPath string, r io.Reader) (Object, error)
	// Open returns a reader for the stored object.
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	// Remove deletes the stored object. Removing a missing object is not an error.
	Remove(ctx context.Context, objectPath string) error
}

// Object describes a stored upload.
type Object struct {
	Path string
	Size int64
}

// Store persists objects on an afero filesystem.
type Store struct {
	fs afero.Fs
}

// New wraps fs. Tests pass afero.NewMemMapFs().
func New(fs afero.Fs) (*Store, error) {
	if fs == nil {
		return nil, errors.New("storage: filesystem is required")
	}
	return &Store{fs: fs}, nil
}

// NewOS roots a store at dir on the local disk.
func NewOS(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root directory: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// ObjectPath derives tenants/<tenant>/<folder|root>/<unixnano>-<filename>.
func ObjectPath(tenantID string, folderID *string, at time.Time, filename string) string {
	folder := "root"
	if folderID != nil && strings.TrimSpace(*folderID) != "" {
		folder = sanitizeFragment(*folderID)
	}
	return path.Join("tenants", sanitizeFragment(tenantID), folder, fmt.Sprintf("%d-%s", at.UnixNano(), SanitizeFilename(filename)))
}

// SanitizeFilename keeps letters, digits, dot, dash and underscore and drops any directory
// components.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// Upload writes r to objectPath, replacing any existing object.
func (s *Store) Upload(ctx context.Context, objectPath string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	clean, err := cleanPath(objectPath)
	if err != nil {
		return Object{}, err
	}
	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: mkdir %s: %w", path.Dir(clean), err)
	}

	fh, err := s.fs.OpenFile(clean, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return Object{}, fmt.Errorf("storage: create file: %w", err)
	}
	size, copyErr := io.Copy(fh, r)
	closeErr := fh.Close()
	if copyErr != nil || closeErr != nil {
		_ = s.fs.Remove(clean)
		if copyErr != nil {
			return Object{}, fmt.Errorf("storage: write file: %w", copyErr)
		}
		return Object{}, fmt.Errorf("storage: close file: %w", closeErr)
	}

	return Object{Path: clean, Size: size}, nil
}

// Open returns a reader for the stored object.
func (s *Store) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	fh, err := s.fs.Open(clean)
	if err != nil {
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return fh, nil
}

// Remove deletes the stored object.
func (s *Store) Remove(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(clean); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Ping reports whether the storage root is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := s.fs.Stat("/")
	if err != nil {
		return fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return errors.New("storage: root is not a directory")
	}
	return nil
}

func cleanPath(objectPath string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(objectPath))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", errors.New("storage: object path is required")
	}
	return clean, nil
}

func sanitizeFragment(fragment string) string {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	fragment = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, fragment)
	fragment = strings.Trim(fragment, "-")
	if fragment == "" {
		return "unknown"
	}
	return fragment
}

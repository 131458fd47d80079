package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/filex"
)

// FileBackend stores each object as a file under one directory. Keys may
// contain slashes; they map to subdirectories.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &FileBackend{dir: abs}, nil
}

func (b *FileBackend) Object(key string) Transport {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	return &FileTransport{path: filepath.Join(b.dir, strings.TrimPrefix(clean, string(filepath.Separator)))}
}

func (b *FileBackend) Close() error { return nil }

type FileTransport struct {
	path string
}

func NewFileTransport(path string) *FileTransport {
	return &FileTransport{path: path}
}

func (t *FileTransport) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	return data, nil
}

func (t *FileTransport) Store(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	if err := filex.WriteFileAtomic(t.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	return nil
}

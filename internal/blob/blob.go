// Package blob moves whole opaque objects between the process and a remote
// store. There are no range reads, no version tokens and no transactions:
// Fetch returns the full object and Store replaces it.
package blob

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/datahub/internal/server/config"
)

// Transport reads and writes one object.
//
// Fetch returns empty bytes and no error when the object does not exist.
// Every other failure wraps common.ErrTransportFailure.
type Transport interface {
	Fetch(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, data []byte) error
}

// Backend hands out transports for object keys within one storage location.
type Backend interface {
	Object(key string) Transport
	Close() error
}

// Open builds the backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendS3:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return NewS3Backend(client, cfg.S3Bucket), nil
	case config.BackendPostgres:
		return OpenPostgres(ctx, cfg.DatabaseDSN)
	case config.BackendFile:
		return NewFileBackend(cfg.FileStorageDir)
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

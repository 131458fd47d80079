package store

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/datahub/internal/blob"
	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/dmitrijs2005/datahub/internal/server/document"
)

// Open opens the configured backend and builds a store on top of it. The
// caller closes the returned backend.
func Open(ctx context.Context, c *config.Config, logger logging.Logger) (*Store, blob.Backend, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	key, err := cryptox.ParseKey(c.DocumentKey)
	if err != nil {
		return nil, nil, fmt.Errorf("document key: %w", err)
	}
	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		return nil, nil, fmt.Errorf("document key: %w", err)
	}
	var codecOpts []document.CodecOption
	if f, err := cryptox.NewFernet(key); err == nil {
		codecOpts = append(codecOpts, document.WithFernet(f))
	}

	backend, err := blob.Open(ctx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("storage init error: %w", err)
	}

	opts := []Option{WithLogger(logger.With("module", "store"))}
	if c.LogConfigObjectKey != "" {
		opts = append(opts, WithSettings(backend.Object(c.LogConfigObjectKey)))
	}

	return New(backend.Object(c.UsersObjectKey), document.NewCodec(sealer, codecOpts...), opts...), backend, nil
}

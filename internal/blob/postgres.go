package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/datahub/internal/blob/migrations"
	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresBackend keeps each object as one row of the blobs table.
type PostgresBackend struct {
	db *sql.DB
}

// OpenPostgres connects with the pgx driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &PostgresBackend{db: db}, nil
}

// Migrate brings the blobs schema up to date.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (b *PostgresBackend) Object(key string) Transport {
	return NewPostgresTransport(b.db, key)
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

type PostgresTransport struct {
	db dbx.DBTX
	id string
}

func NewPostgresTransport(db dbx.DBTX, id string) *PostgresTransport {
	return &PostgresTransport{db: db, id: id}
}

func (t *PostgresTransport) Fetch(ctx context.Context) ([]byte, error) {
	query :=
		`SELECT data FROM blobs
		 WHERE id = $1
		 `

	var data []byte
	err := t.db.QueryRowContext(ctx, query, t.id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: db error: %w", common.ErrTransportFailure, err)
	}

	return data, nil
}

func (t *PostgresTransport) Store(ctx context.Context, data []byte) error {
	query :=
		`INSERT INTO blobs (id, data, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		 `

	if data == nil {
		data = []byte{}
	}

	if _, err := t.db.ExecContext(ctx, query, t.id, data); err != nil {
		return fmt.Errorf("%w: db error: %w", common.ErrTransportFailure, err)
	}
	return nil
}

// Package repository stores ledger slots in a SQL database. PostgreSQL is
// reached through the pgx stdlib driver, SQLite through the pure-Go modernc
// driver; both share one table layout.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/atinyakov/dogify/internal/storage"
)

// Supported driver names, as registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type dialect struct {
	create string
	get    string
	set    string
}

var dialects = map[string]dialect{
	DriverPostgres: {
		create: `CREATE TABLE IF NOT EXISTS storage_slots (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		get: `SELECT value FROM storage_slots WHERE name = $1;`,
		set: `INSERT INTO storage_slots(name, value) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = now();`,
	},
	DriverSQLite: {
		create: `CREATE TABLE IF NOT EXISTS storage_slots (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		get: `SELECT value FROM storage_slots WHERE name = ?;`,
		set: `INSERT INTO storage_slots(name, value) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP;`,
	},
}

// InitDB opens the database, checks the connection and creates the slot table.
func InitDB(ctx context.Context, driver, dsn string, logger *zap.Logger) (*sql.DB, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := Migrate(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database connected and table ready.", zap.String("driver", driver))
	return db, nil
}

// Migrate creates the slot table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	_, err := db.ExecContext(ctx, d.create)
	return err
}

// SlotRepository implements storage.Slots on top of a SQL table.
type SlotRepository struct {
	db      *sql.DB
	dialect dialect
	quota   int64
	logger  *zap.Logger
}

func CreateSlotRepository(db *sql.DB, driver string, quota int64, logger *zap.Logger) (*SlotRepository, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	return &SlotRepository{
		db:      db,
		dialect: d,
		quota:   quota,
		logger:  logger,
	}, nil
}

func (r *SlotRepository) Get(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, storage.ErrInvalidSlotName
	}

	var value string
	err := r.db.QueryRowContext(ctx, r.dialect.get, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSlotNotFound
	}
	if err != nil {
		r.logger.Error("slot read failed", zap.String("slot", name), zap.Error(err))
		return nil, classify(err)
	}

	return []byte(value), nil
}

func (r *SlotRepository) Set(ctx context.Context, name string, value []byte) error {
	if name == "" {
		return storage.ErrInvalidSlotName
	}
	if err := storage.CheckQuota(r.quota, name, value); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, r.dialect.set, name, string(value)); err != nil {
		r.logger.Error("slot write failed", zap.String("slot", name), zap.Error(err))
		return classify(err)
	}

	return nil
}

func (r *SlotRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SlotRepository) Close() error {
	return r.db.Close()
}

// classify turns PostgreSQL resource errors into storage.ErrQuotaExceeded.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if pgerrcode.IsInsufficientResources(pgErr.Code) || pgerrcode.IsProgramLimitExceeded(pgErr.Code) {
		return fmt.Errorf("%w: %s (%s)", storage.ErrQuotaExceeded, pgErr.Message, pgErr.Code)
	}

	return err
}

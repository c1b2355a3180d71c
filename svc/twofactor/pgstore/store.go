// Package pgstore is a PostgreSQL twofactor.Store built on pgx.
//
// Conditional writes are single statements: a confirmation upserts only while
// the stored row is still pending, and backup codes are removed with
// array_remove guarded by = ANY, so row locks serialize competing requests.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/twofactor/pkg/pg"
	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB is the subset of pgx used by the store. *pgxpool.Pool, *pgx.Conn and
// pgx.Tx satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

var _ twofactor.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates or upgrades the two_factor table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

const getQuery = `
SELECT user_id, secret, enabled, backup_code_hashes, enabled_at, last_counter, created_at, updated_at
FROM two_factor
WHERE user_id = $1`

func (s *Store) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	var (
		rec       twofactor.Record
		enabledAt *time.Time
	)
	err := s.db.QueryRow(ctx, getQuery, userID).Scan(
		&rec.UserID,
		&rec.Secret,
		&rec.Enabled,
		&rec.BackupCodeHashes,
		&enabledAt,
		&rec.LastCounter,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, twofactor.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(twofactor.ErrStoreUnavailable, err)
	}

	if enabledAt != nil {
		rec.EnabledAt = enabledAt.UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

const upsertPendingQuery = `
INSERT INTO two_factor AS t (user_id, secret, enabled, backup_code_hashes, enabled_at, last_counter, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
    secret = EXCLUDED.secret,
    enabled = EXCLUDED.enabled,
    backup_code_hashes = EXCLUDED.backup_code_hashes,
    enabled_at = EXCLUDED.enabled_at,
    last_counter = EXCLUDED.last_counter,
    created_at = EXCLUDED.created_at,
    updated_at = EXCLUDED.updated_at
WHERE t.enabled = FALSE`

const updateEnabledQuery = `
UPDATE two_factor SET
    secret = $2,
    enabled = $3,
    backup_code_hashes = $4,
    enabled_at = $5,
    last_counter = $6,
    created_at = $7,
    updated_at = $8
WHERE user_id = $1 AND enabled = TRUE`

func (s *Store) Put(ctx context.Context, rec *twofactor.Record, expectEnabled bool) error {
	if rec == nil || rec.UserID == "" {
		return twofactor.ErrInvalidInput
	}

	query := upsertPendingQuery
	if expectEnabled {
		query = updateEnabledQuery
	}

	hashes := rec.BackupCodeHashes
	if hashes == nil {
		hashes = []string{}
	}

	tag, err := s.db.Exec(ctx, query,
		rec.UserID,
		rec.Secret,
		rec.Enabled,
		hashes,
		nullTime(rec.EnabledAt),
		rec.LastCounter,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return twofactor.ErrConflict
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM two_factor WHERE user_id = $1`, userID); err != nil {
		return errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	return nil
}

const consumeQuery = `
UPDATE two_factor SET
    backup_code_hashes = array_remove(backup_code_hashes, $2::text),
    updated_at = NOW()
WHERE user_id = $1 AND $2::text = ANY(backup_code_hashes)`

func (s *Store) ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error) {
	return s.conditionalUpdate(ctx, userID, consumeQuery, userID, hash)
}

const advanceQuery = `
UPDATE two_factor SET
    last_counter = $2,
    updated_at = NOW()
WHERE user_id = $1 AND last_counter < $2`

func (s *Store) AdvanceCounter(ctx context.Context, userID string, counter int64) (bool, error) {
	return s.conditionalUpdate(ctx, userID, advanceQuery, userID, counter)
}

// conditionalUpdate runs query and reports whether it touched a row. When it
// did not, the row is looked up to tell a failed condition from a missing user.
func (s *Store) conditionalUpdate(ctx context.Context, userID, query string, args ...any) (bool, error) {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return false, errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM two_factor WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	if !exists {
		return false, twofactor.ErrNotFound
	}
	return false, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Package redisstore is a Redis twofactor.Store. Each record is a JSON value
// under its own key; writes use WATCH/MULTI optimistic transactions.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

const (
	DefaultKeyPrefix = "2fa:"

	// maxRetries bounds how often ConsumeBackupCode and AdvanceCounter retry
	// after a concurrent write to the same key.
	maxRetries = 10
)

type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ twofactor.Store = (*Store)(nil)

// New returns a Store writing keys as prefix+userID.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

type document struct {
	UserID           string    `json:"user_id"`
	Secret           string    `json:"secret"`
	Enabled          bool      `json:"enabled"`
	BackupCodeHashes []string  `json:"backup_code_hashes"`
	EnabledAt        time.Time `json:"enabled_at"`
	LastCounter      int64     `json:"last_counter"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func fromRecord(rec *twofactor.Record) document {
	return document{
		UserID:           rec.UserID,
		Secret:           rec.Secret,
		Enabled:          rec.Enabled,
		BackupCodeHashes: rec.BackupCodeHashes,
		EnabledAt:        rec.EnabledAt,
		LastCounter:      rec.LastCounter,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func (d document) record() *twofactor.Record {
	return &twofactor.Record{
		UserID:           d.UserID,
		Secret:           d.Secret,
		Enabled:          d.Enabled,
		BackupCodeHashes: d.BackupCodeHashes,
		EnabledAt:        d.EnabledAt,
		LastCounter:      d.LastCounter,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) key(userID string) string { return s.prefix + userID }

func (s *Store) read(ctx context.Context, c getter, key string) (*document, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, twofactor.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func write(ctx context.Context, tx *redis.Tx, key string, doc document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, 0)
		return nil
	})
	return err
}

func (s *Store) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	doc, err := s.read(ctx, s.client, s.key(userID))
	if err != nil {
		return nil, mapError(err)
	}
	return doc.record(), nil
}

func (s *Store) Put(ctx context.Context, rec *twofactor.Record, expectEnabled bool) error {
	if rec == nil || rec.UserID == "" {
		return twofactor.ErrInvalidInput
	}
	key := s.key(rec.UserID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil && !errors.Is(err, twofactor.ErrNotFound) {
			return err
		}
		if expectEnabled != (current != nil && current.Enabled) {
			return twofactor.ErrConflict
		}
		return write(ctx, tx, key, fromRecord(rec))
	}, key)
	return mapError(err)
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	return mapError(s.client.Del(ctx, s.key(userID)).Err())
}

func (s *Store) ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error) {
	return s.update(ctx, userID, func(doc *document) bool {
		for i, h := range doc.BackupCodeHashes {
			if h == hash {
				doc.BackupCodeHashes = append(doc.BackupCodeHashes[:i], doc.BackupCodeHashes[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (s *Store) AdvanceCounter(ctx context.Context, userID string, counter int64) (bool, error) {
	return s.update(ctx, userID, func(doc *document) bool {
		if counter <= doc.LastCounter {
			return false
		}
		doc.LastCounter = counter
		return true
	})
}

// update applies fn to the stored document and writes it back if fn reports
// a change. The read-modify-write is retried when another client touched the
// key in between.
func (s *Store) update(ctx context.Context, userID string, fn func(*document) bool) (bool, error) {
	key := s.key(userID)

	for range maxRetries {
		var changed bool
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			doc, err := s.read(ctx, tx, key)
			if err != nil {
				return err
			}
			if changed = fn(doc); !changed {
				return nil
			}
			doc.UpdatedAt = time.Now().UTC()
			return write(ctx, tx, key, *doc)
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, mapError(err)
		}
		return changed, nil
	}
	return false, twofactor.ErrConflict
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, twofactor.ErrNotFound), errors.Is(err, twofactor.ErrConflict):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return twofactor.ErrConflict
	default:
		return errors.Join(twofactor.ErrStoreUnavailable, err)
	}
}

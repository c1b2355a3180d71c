// Package mongostore is a MongoDB twofactor.Store. Documents are keyed by
// user ID; conditional writes are filtered UpdateOne calls.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

const DefaultCollection = "two_factor"

type Store struct {
	coll *mongo.Collection
}

var _ twofactor.Store = (*Store)(nil)

// New stores records in the two_factor collection of db.
func New(db *mongo.Database) *Store {
	return NewWithCollection(db.Collection(DefaultCollection))
}

func NewWithCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

type document struct {
	UserID           string    `bson:"_id"`
	Secret           string    `bson:"secret"`
	Enabled          bool      `bson:"enabled"`
	BackupCodeHashes []string  `bson:"backup_code_hashes"`
	EnabledAt        time.Time `bson:"enabled_at"`
	LastCounter      int64     `bson:"last_counter"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d document) record() *twofactor.Record {
	rec := &twofactor.Record{
		UserID:           d.UserID,
		Secret:           d.Secret,
		Enabled:          d.Enabled,
		BackupCodeHashes: d.BackupCodeHashes,
		LastCounter:      d.LastCounter,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
	if !d.EnabledAt.IsZero() {
		rec.EnabledAt = d.EnabledAt.UTC()
	}
	return rec
}

func fields(rec *twofactor.Record) bson.M {
	hashes := rec.BackupCodeHashes
	if hashes == nil {
		hashes = []string{}
	}
	return bson.M{
		"secret":             rec.Secret,
		"enabled":            rec.Enabled,
		"backup_code_hashes": hashes,
		"enabled_at":         rec.EnabledAt,
		"last_counter":       rec.LastCounter,
		"created_at":         rec.CreatedAt,
		"updated_at":         rec.UpdatedAt,
	}
}

func (s *Store) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, twofactor.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	return doc.record(), nil
}

func (s *Store) Put(ctx context.Context, rec *twofactor.Record, expectEnabled bool) error {
	if rec == nil || rec.UserID == "" {
		return twofactor.ErrInvalidInput
	}

	filter := bson.M{"_id": rec.UserID, "enabled": expectEnabled}
	update := bson.M{"$set": fields(rec)}

	if expectEnabled {
		res, err := s.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return errors.Join(twofactor.ErrStoreUnavailable, err)
		}
		if res.MatchedCount == 0 {
			return twofactor.ErrConflict
		}
		return nil
	}

	// An enabled document fails the filter, so the upsert tries to insert a
	// second document with the same _id.
	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return twofactor.ErrConflict
	}
	if err != nil {
		return errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error) {
	return s.conditionalUpdate(ctx, userID,
		bson.M{"_id": userID, "backup_code_hashes": hash},
		bson.M{
			"$pull": bson.M{"backup_code_hashes": hash},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

func (s *Store) AdvanceCounter(ctx context.Context, userID string, counter int64) (bool, error) {
	return s.conditionalUpdate(ctx, userID,
		bson.M{"_id": userID, "last_counter": bson.M{"$lt": counter}},
		bson.M{"$set": bson.M{"last_counter": counter, "updated_at": time.Now().UTC()}},
	)
}

func (s *Store) conditionalUpdate(ctx context.Context, userID string, filter, update bson.M) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return false, errors.Join(twofactor.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return false, twofactor.ErrNotFound
	}
	return false, nil
}

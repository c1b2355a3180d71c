package twofactor

import "context"

// Store persists two-factor records.
//
// Implementations must make Put, ConsumeBackupCode and AdvanceCounter atomic
// with respect to each other. Driver failures are reported wrapped with
// ErrStoreUnavailable.
type Store interface {
	// Get returns the user's record or ErrNotFound.
	Get(ctx context.Context, userID string) (*Record, error)

	// Put writes rec only if the stored enabled flag equals expectEnabled.
	// With expectEnabled false an absent record also satisfies the condition.
	// A failed condition returns ErrConflict.
	Put(ctx context.Context, rec *Record, expectEnabled bool) error

	// Delete removes the user's record. Deleting an absent record is not an error.
	Delete(ctx context.Context, userID string) error

	// ConsumeBackupCode removes hash from the user's backup code hashes and
	// reports whether it was present. ErrNotFound if there is no record.
	ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error)

	// AdvanceCounter sets LastCounter to counter if counter is greater than
	// the stored value and reports whether it did. ErrNotFound if there is no record.
	AdvanceCounter(ctx context.Context, userID string, counter int64) (bool, error)
}

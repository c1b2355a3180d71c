package twofactor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
	"github.com/dmitrymomot/twofactor/svc/twofactor"
)

var epoch = time.Unix(1_700_000_015, 0)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: epoch} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T, store twofactor.Store, opts ...twofactor.ServiceOption) *twofactor.Service {
	t.Helper()
	svc, err := twofactor.NewService(store, opts...)
	require.NoError(t, err)
	return svc
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateTOTP(secret, at)
	require.NoError(t, err)
	return code
}

// wrongCode returns a well-formed code that matches none of the windows around at.
func wrongCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	valid := map[string]bool{}
	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		valid[codeAt(t, secret, at.Add(offset))] = true
	}
	for _, code := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[code] {
			return code
		}
	}
	t.Fatal("no wrong code available")
	return ""
}

// enroll runs setup and confirmation and returns the secret and backup codes.
func enroll(t *testing.T, svc *twofactor.Service, c *clock, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := svc.BeginSetup(ctx, userID)
	require.NoError(t, err)

	conf, err := svc.ConfirmSetup(ctx, userID, codeAt(t, setup.Secret, c.Now()))
	require.NoError(t, err)
	return setup.Secret, conf.BackupCodes
}

// barrierStore holds every Get until the expected number of readers arrived,
// so concurrent callers all act on the same snapshot.
type barrierStore struct {
	twofactor.Store
	readers sync.WaitGroup
}

func newBarrierStore(inner twofactor.Store, readers int) *barrierStore {
	b := &barrierStore{Store: inner}
	b.readers.Add(readers)
	return b
}

func (b *barrierStore) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	rec, err := b.Store.Get(ctx, userID)
	b.readers.Done()
	b.readers.Wait()
	return rec, err
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	args := m.Called(ctx, userID)
	rec, _ := args.Get(0).(*twofactor.Record)
	return rec, args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, rec *twofactor.Record, expectEnabled bool) error {
	return m.Called(ctx, rec, expectEnabled).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStore) ConsumeBackupCode(ctx context.Context, userID, hash string) (bool, error) {
	args := m.Called(ctx, userID, hash)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) AdvanceCounter(ctx context.Context, userID string, counter int64) (bool, error) {
	args := m.Called(ctx, userID, counter)
	return args.Bool(0), args.Error(1)
}

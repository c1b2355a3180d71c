package twofactor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/audit"
	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/statemachine"
	"github.com/dmitrymomot/twofactor/pkg/totp"
)

// Audit actions.
const (
	ActionSetupStarted       = "two_factor.setup_started"
	ActionEnabled            = "two_factor.enabled"
	ActionLoginVerified      = "two_factor.login_verified"
	ActionLoginFailed        = "two_factor.login_failed"
	ActionBackupCodeRedeemed = "two_factor.backup_code_redeemed"
	ActionDeleted            = "two_factor.deleted"
)

const (
	eventBegin   = statemachine.StringEvent("begin")
	eventConfirm = statemachine.StringEvent("confirm")
)

// Setup is returned by BeginSetup. Secret is shown to the user for manual
// entry; URI is the otpauth:// key URI, empty when no issuer is configured.
type Setup struct {
	Secret string
	URI    string
}

// Confirmation carries the plaintext backup codes. They are never available again.
type Confirmation struct {
	BackupCodes []string
}

// Service runs the two-factor enrollment and verification flows.
// It holds no per-user state and is safe for concurrent use.
type Service struct {
	store            Store
	verifier         *totp.Verifier
	sealer           SecretSealer
	logger           *slog.Logger
	audit            *audit.Logger
	now              func() time.Time
	issuer           string
	replayProtection bool
	machine          *statemachine.Definition
}

// transition carries request data through the state machine.
type transition struct {
	userID string
	record *Record
	code   string

	counter     int64
	secret      string
	backupCodes []string
	err         error
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		store:    store,
		verifier: totp.NewVerifier(),
		sealer:   plaintextSealer{},
		logger:   logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("twofactor"))

	machine, err := statemachine.New(
		statemachine.WithTransition(StateUnregistered, StatePending, eventBegin,
			statemachine.WithAction(s.storePending)),
		statemachine.WithTransition(StatePending, StatePending, eventBegin,
			statemachine.WithAction(s.storePending)),
		statemachine.WithTransition(StatePending, StateEnabled, eventConfirm,
			statemachine.WithGuard(s.codeMatches),
			statemachine.WithAction(s.enable)),
	)
	if err != nil {
		return nil, err
	}
	s.machine = machine
	return s, nil
}

// BeginSetup issues a new secret for userID and stores it as pending.
// Calling it again while pending replaces the secret.
func (s *Service) BeginSetup(ctx context.Context, userID string) (*Setup, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	rec, err := s.load(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	t := &transition{userID: userID, record: rec}
	if err := s.fire(ctx, rec.State(), eventBegin, t); err != nil {
		s.logger.WarnContext(ctx, "two-factor setup failed", logger.UserID(userID), logger.Error(err))
		return nil, err
	}

	setup := &Setup{Secret: t.secret}
	if s.issuer != "" {
		uri, err := totp.GetTOTPURI(totp.TOTPParams{
			Secret:      t.secret,
			AccountName: userID,
			Issuer:      s.issuer,
		})
		if err != nil {
			return nil, errors.Join(ErrInvalidInput, err)
		}
		setup.URI = uri
	}

	s.logger.InfoContext(ctx, "two-factor setup started", logger.UserID(userID))
	s.record(ctx, ActionSetupStarted, userID, nil)
	return setup, nil
}

// ConfirmSetup verifies code against the pending secret and enables
// two-factor authentication. The returned backup codes are shown once.
func (s *Service) ConfirmSetup(ctx context.Context, userID, code string) (*Confirmation, error) {
	if err := totp.ValidateCode(code); err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}
	if userID == "" {
		return nil, ErrInvalidInput
	}

	rec, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	t := &transition{userID: userID, record: rec, code: code}
	if err := s.fire(ctx, rec.State(), eventConfirm, t); err != nil {
		s.logger.WarnContext(ctx, "two-factor confirmation failed", logger.UserID(userID), logger.Error(err))
		if errors.Is(err, ErrInvalidCode) {
			s.record(ctx, ActionEnabled, userID, err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "two-factor enabled", logger.UserID(userID))
	s.record(ctx, ActionEnabled, userID, nil, audit.WithMetadata("backup_codes", len(t.backupCodes)))
	return &Confirmation{BackupCodes: t.backupCodes}, nil
}

// VerifyLogin checks a TOTP code for a user with two-factor enabled.
// A wrong code returns false with ErrInvalidCode.
func (s *Service) VerifyLogin(ctx context.Context, userID, code string) (bool, error) {
	if err := totp.ValidateCode(code); err != nil {
		return false, errors.Join(ErrInvalidInput, err)
	}

	rec, err := s.loadEnabled(ctx, userID)
	if err != nil {
		return false, err
	}

	secret, err := s.sealer.Open(userID, rec.Secret)
	if err != nil {
		return false, errors.Join(ErrInvalidInput, err)
	}

	counter, ok, err := s.verifier.Match(secret, code, s.now())
	if err != nil {
		return false, errors.Join(ErrInvalidInput, err)
	}
	if ok && s.replayProtection {
		ok, err = s.advance(ctx, rec, counter)
		if err != nil {
			return false, err
		}
	}
	if !ok {
		s.logger.InfoContext(ctx, "two-factor login rejected", logger.UserID(userID))
		s.record(ctx, ActionLoginFailed, userID, ErrInvalidCode)
		return false, ErrInvalidCode
	}

	s.record(ctx, ActionLoginVerified, userID, nil)
	return true, nil
}

// RedeemBackupCode consumes one of the user's backup codes. Each code works
// once; a reused or unknown code returns false with ErrInvalidCode.
func (s *Service) RedeemBackupCode(ctx context.Context, userID, code string) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return false, ErrInvalidInput
	}

	rec, err := s.loadEnabled(ctx, userID)
	if err != nil {
		return false, err
	}

	hash, ok := totp.MatchRecoveryCode(code, rec.BackupCodeHashes)
	if ok {
		// A concurrent redemption of the same code may have removed it
		// since the record was read.
		ok, err = s.store.ConsumeBackupCode(ctx, userID, hash)
		if err != nil {
			return false, err
		}
	}
	if !ok {
		s.logger.InfoContext(ctx, "backup code rejected", logger.UserID(userID))
		s.record(ctx, ActionBackupCodeRedeemed, userID, ErrInvalidCode)
		return false, ErrInvalidCode
	}

	remaining := len(rec.BackupCodeHashes) - 1
	s.logger.InfoContext(ctx, "backup code redeemed", logger.UserID(userID), slog.Int("remaining", remaining))
	s.record(ctx, ActionBackupCodeRedeemed, userID, nil, audit.WithMetadata("remaining", remaining))
	return true, nil
}

// Status returns the user's enrollment state.
func (s *Service) Status(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return "", ErrInvalidInput
	}
	rec, err := s.load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return StateUnregistered, nil
	}
	if err != nil {
		return "", err
	}
	return rec.State(), nil
}

// RemainingBackupCodes returns how many unused backup codes the user has.
func (s *Service) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	rec, err := s.loadEnabled(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(rec.BackupCodeHashes), nil
}

// Delete removes the user's two-factor data, e.g. on account deletion.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidInput
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "two-factor data deleted", logger.UserID(userID))
	s.record(ctx, ActionDeleted, userID, nil)
	return nil
}

func (s *Service) load(ctx context.Context, userID string) (*Record, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.store.Get(ctx, userID)
}

// loadEnabled treats a pending record as absent.
func (s *Service) loadEnabled(ctx context.Context, userID string) (*Record, error) {
	rec, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rec.Enabled {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) advance(ctx context.Context, rec *Record, counter int64) (bool, error) {
	if counter <= rec.LastCounter {
		return false, nil
	}
	return s.store.AdvanceCounter(ctx, rec.UserID, counter)
}

// fire runs event and translates state machine failures into package errors.
func (s *Service) fire(ctx context.Context, from State, event statemachine.Event, t *transition) error {
	_, err := s.machine.Fire(ctx, from, event, t)
	switch {
	case err == nil:
		return nil
	case t.err != nil:
		return t.err
	case statemachine.IsNoTransitionAvailableError(err):
		if from == StateEnabled {
			return ErrAlreadyEnabled
		}
		return ErrNotFound
	case statemachine.IsTransitionRejectedError(err):
		return ErrInvalidCode
	default:
		return err
	}
}

func (s *Service) storePending(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	t := data.(*transition)

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		t.err = err
		return err
	}
	sealed, err := s.sealer.Seal(t.userID, secret)
	if err != nil {
		t.err = err
		return err
	}

	now := s.now().UTC()
	rec := &Record{
		UserID:    t.userID,
		Secret:    sealed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.record != nil {
		rec.CreatedAt = t.record.CreatedAt
	}
	if err := s.store.Put(ctx, rec, false); err != nil {
		t.err = err
		return err
	}
	t.secret = secret
	return nil
}

func (s *Service) codeMatches(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	t := data.(*transition)

	secret, err := s.sealer.Open(t.userID, t.record.Secret)
	if err != nil {
		t.err = errors.Join(ErrInvalidInput, err)
		return false
	}
	counter, ok, err := s.verifier.Match(secret, t.code, s.now())
	if err != nil {
		t.err = errors.Join(ErrInvalidInput, err)
		return false
	}
	t.counter = counter
	return ok
}

func (s *Service) enable(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	t := data.(*transition)

	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		t.err = err
		return err
	}

	now := s.now().UTC()
	rec := t.record.Clone()
	rec.Enabled = true
	rec.EnabledAt = now
	rec.UpdatedAt = now
	rec.BackupCodeHashes = totp.HashRecoveryCodes(codes)
	if s.replayProtection {
		rec.LastCounter = t.counter
	}

	// Conditional on the record still being pending: of two concurrent
	// confirmations only the first write lands.
	if err := s.store.Put(ctx, rec, false); err != nil {
		t.err = err
		return err
	}
	t.backupCodes = codes
	return nil
}

// record writes an audit event. Audit failures are logged, never returned.
func (s *Service) record(ctx context.Context, action, userID string, cause error, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	opts = append(opts, audit.WithUserID(userID), audit.WithResource("two_factor", userID))

	var err error
	if cause != nil {
		if errors.Is(cause, ErrInvalidCode) {
			opts = append(opts, audit.WithResult(audit.ResultFailure))
		}
		err = s.audit.LogError(ctx, action, cause, opts...)
	} else {
		err = s.audit.Log(ctx, action, opts...)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to write audit event", logger.Event(action), logger.Error(err))
	}
}

// Package twofactor implements TOTP two-factor enrollment and verification.
//
// A user moves through three states: unregistered (no record), pending (a
// secret was issued but not confirmed) and enabled. BeginSetup issues a fresh
// secret, ConfirmSetup proves the user's authenticator produces matching codes
// and returns ten single-use backup codes exactly once. After that, VerifyLogin
// checks TOTP codes and RedeemBackupCode consumes backup codes.
//
// Persistence is delegated to a Store. Confirmation is a single conditional
// write, so when two confirmations race exactly one wins and the other gets
// ErrConflict. Backup-code redemption is an atomic check-and-remove.
//
// Basic usage:
//
//	svc, err := twofactor.NewService(twofactor.NewMemoryStore(),
//		twofactor.WithIssuer("Acme"),
//		twofactor.WithLogger(log),
//	)
//	setup, err := svc.BeginSetup(ctx, userID)
//	// show setup.URI as a QR code, then:
//	conf, err := svc.ConfirmSetup(ctx, userID, code)
//	// display conf.BackupCodes once
//
// Errors are sentinels and must be checked with errors.Is.
package twofactor

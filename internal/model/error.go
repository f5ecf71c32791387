package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the custody engine. Callers match with errors.Is.
var (
	// ErrLocked means no usable key material is resolvable (no in-memory
	// password and no session fallback).
	ErrLocked = errors.New("wallet is locked")

	// ErrDecryptionFailed covers both a wrong password and a corrupted
	// blob. The two cases are intentionally indistinguishable.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrNoUsableKey means every decryption path failed, including the
	// session raw-key fallback.
	ErrNoUsableKey = errors.New("no usable decryption key")

	ErrInvalidMnemonic   = errors.New("invalid mnemonic phrase")
	ErrInvalidPrivateKey = errors.New("invalid private key")

	ErrMainWalletLocked    = errors.New("main wallet is locked")
	ErrSubWalletNotFound   = errors.New("sub-wallet not found")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrInvitationNotFound         = errors.New("invitation not found")
	ErrInvitationAlreadyProcessed = errors.New("invitation already processed")

	ErrNoProvider = errors.New("no provider for network")

	ErrWalletExists   = errors.New("wallet already exists")
	ErrNoStoredWallet = errors.New("no stored wallet")
)

// TransactionFailedError wraps a provider failure during a broadcast so the
// underlying cause is never swallowed.
type TransactionFailedError struct {
	NetworkID string
	Cause     error
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction failed on %s: %v", e.NetworkID, e.Cause)
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Cause
}

// IsTransactionFailed checks if error is a TransactionFailedError
func IsTransactionFailed(err error) bool {
	var tfe *TransactionFailedError
	return errors.As(err, &tfe)
}

// ErrorResponse is the consistent JSON structure for all API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

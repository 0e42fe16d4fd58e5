package domain

import "errors"

var (
	// ErrStoreUnavailable wraps failures reaching the inventory store or the ledger.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRecipientResolution wraps staff directory lookup failures.
	// It is never fatal: the evaluation continues with zero recipients.
	ErrRecipientResolution = errors.New("recipient resolution failed")

	// ErrDispatchFailed wraps delivery channel failures.
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrArchivalWriteFailed wraps failures persisting the archived flag.
	ErrArchivalWriteFailed = errors.New("archival write failed")

	ErrUnitNotFound  = errors.New("stock unit not found")
	ErrInvalidUnitID = errors.New("invalid stock unit id")
)

package session

import "errors"

var (
	// ErrCredentialMissing is returned by Load when no credential has been
	// stored yet. This is the normal first-run state and callers should
	// continue without cookies rather than abort.
	ErrCredentialMissing = errors.New("no stored session credential")

	// ErrCorruptCredential is returned by Load when the stored document
	// cannot be decoded as a cookie array.
	ErrCorruptCredential = errors.New("stored session credential is not a valid cookie list")

	// ErrNilCredential is returned by Save when asked to store nil.
	ErrNilCredential = errors.New("cannot save nil session credential")
)

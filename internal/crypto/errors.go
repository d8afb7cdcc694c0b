package crypto

import "fmt"

// MissingKeyError means production mode was requested without an encryption key.
type MissingKeyError struct{}

func (*MissingKeyError) Error() string {
	return "ENCRYPTION_KEY must be set in production"
}

// InvalidKeyError means the configured key is not a hex encoded 32 byte key.
type InvalidKeyError struct {
	Length int
	Err    error
}

func (e *InvalidKeyError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("encryption key must be exactly %d bytes (64 hex characters), got %d bytes", keySize, e.Length)
}

func (e *InvalidKeyError) Unwrap() error { return e.Err }

// DecryptionError covers malformed envelopes and ciphertext that fails to unpad.
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decrypt: %s: %v", e.Reason, e.Err)
	}
	return "failed to decrypt: " + e.Reason
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Package crypto provides encryption services for tokens at rest.
//
// Tokens are sealed with AES-256-CBC into a "hex(iv):hex(ciphertext)" envelope with a fresh IV per call.
// Two implementations: AesCbcCryptoService (production) and NoopService (development plaintext passthrough).
package crypto

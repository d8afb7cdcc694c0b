package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const keySize = 32

type Service interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// New picks the implementation for the deployment mode. Without a key, production refuses
// to start and development falls back to NoopService with a warning.
func New(hexKey string, production bool) (Service, error) {
	if hexKey == "" {
		if production {
			return nil, &MissingKeyError{}
		}
		slog.Warn("ENCRYPTION_KEY not set, storing tokens unencrypted (development only)")
		return NoopService{}, nil
	}
	return NewAesCbcCryptoService(hexKey)
}

// NoopService passes tokens through without encryption (dev/test mode).
type NoopService struct{}

func (NoopService) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (NoopService) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

type AesCbcCryptoService struct {
	block cipher.Block
}

func NewAesCbcCryptoService(hexKey string) (*AesCbcCryptoService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, &InvalidKeyError{Err: fmt.Errorf("invalid encryption key hex: %w", err)}
	}
	if len(key) != keySize {
		return nil, &InvalidKeyError{Length: len(key)}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &AesCbcCryptoService{block: block}, nil
}

func (c *AesCbcCryptoService) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (c *AesCbcCryptoService) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 2 {
		return "", &DecryptionError{Reason: "malformed envelope"}
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", &DecryptionError{Reason: "bad iv encoding", Err: err}
	}
	if len(iv) != aes.BlockSize {
		return "", &DecryptionError{Reason: "bad iv length"}
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", &DecryptionError{Reason: "bad ciphertext encoding", Err: err}
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", &DecryptionError{Reason: "ciphertext is not a whole number of blocks"}
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	plain, ok := unpad(out, aes.BlockSize)
	if !ok {
		return "", &DecryptionError{Reason: "invalid padding"}
	}
	return string(plain), nil
}

// PKCS#7
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, blockSize int) ([]byte, bool) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}

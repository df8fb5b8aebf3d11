// Package crypto encrypts third-party secrets at rest.
//
// Blob layout is base64(salt[16] || nonce[12] || ciphertext+tag): a
// 256-bit key is derived per call with PBKDF2-SHA256 over a fresh random
// salt, then the plaintext is sealed with AES-256-GCM. The GCM tag is the
// sole authenticity check; any truncation, tampering or wrong master key
// fails decryption loudly.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
	"github.com/Phantom-bronze/UserModule/internal/common/errorx"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	minIterations = 100000
)

var (
	ErrEmptyMasterKey = errors.New("master key cannot be empty")
	ErrWeakMasterKey  = errors.New("master key must be at least 32 characters")
)

// Vault performs authenticated encryption of secrets under a process-wide
// master key. Immutable after construction.
type Vault struct {
	masterKey  string
	iterations int
}

// NewVault creates a vault from configuration.
func NewVault(cfg *config.CryptoConfig) (*Vault, error) {
	if cfg.MasterKey == "" {
		return nil, ErrEmptyMasterKey
	}
	if len(cfg.MasterKey) < 32 {
		return nil, ErrWeakMasterKey
	}
	iters := cfg.Iterations
	if iters < minIterations {
		iters = minIterations
	}
	return &Vault{masterKey: cfg.MasterKey, iterations: iters}, nil
}

// Encrypt seals plaintext and returns a printable blob. Two calls with
// the same plaintext never produce the same blob.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	return encrypt(v.masterKey, v.iterations, plaintext)
}

// Decrypt opens a blob produced by Encrypt. Malformed or tampered input
// yields a CryptoError, never garbage.
func (v *Vault) Decrypt(blob string) (string, error) {
	return decrypt(v.masterKey, v.iterations, blob)
}

// Rotate re-encrypts a blob under a new master key. Both keys are passed
// explicitly; the vault's own key is untouched, so concurrent requests
// never observe a half-rotated configuration. Callers are responsible for
// applying Rotate to every stored secret inside one storage transaction.
func (v *Vault) Rotate(oldKey, newKey, blob string) (string, error) {
	if len(newKey) < 32 {
		return "", ErrWeakMasterKey
	}
	plaintext, err := decrypt(oldKey, v.iterations, blob)
	if err != nil {
		return "", err
	}
	return encrypt(newKey, v.iterations, plaintext)
}

// IsEncrypted reports whether s plausibly is a vault blob: valid base64
// decoding to at least salt+nonce+minimum ciphertext. Heuristic only.
func IsEncrypted(s string) bool {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return len(raw) >= saltSize+nonceSize+16
}

func deriveKey(masterKey string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(masterKey), salt, iterations, keySize, sha256.New)
}

func encrypt(masterKey string, iterations int, plaintext string) (string, error) {
	if plaintext == "" {
		return "", errorx.Validation("cannot encrypt empty data")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errorx.Internal(fmt.Errorf("generate salt: %w", err))
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errorx.Internal(fmt.Errorf("generate nonce: %w", err))
	}

	aead, err := newAEAD(masterKey, salt, iterations)
	if err != nil {
		return "", errorx.Internal(err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

func decrypt(masterKey string, iterations int, blob string) (string, error) {
	if blob == "" {
		return "", errorx.Validation("cannot decrypt empty data")
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", errorx.Crypto(fmt.Errorf("decode blob: %w", err))
	}
	if len(raw) < saltSize+nonceSize+1 {
		return "", errorx.Crypto(errors.New("blob too short"))
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	aead, err := newAEAD(masterKey, salt, iterations)
	if err != nil {
		return "", errorx.Internal(err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errorx.Crypto(err)
	}
	return string(plaintext), nil
}

func newAEAD(masterKey string, salt []byte, iterations int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(masterKey, salt, iterations))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

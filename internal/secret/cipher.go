package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tradefin/escrow-wallet/internal/model"

	"golang.org/x/crypto/scrypt"
)

// Ciphertext scheme identifiers. Every envelope written today is tagged
// SchemeScryptV1; SchemeLegacySHA256 exists only to read records produced
// by the earlier raw-key scheme. Untagged envelopes are legacy: with a salt
// they are early password-scheme records, without one they are raw-key
// records.
const (
	SchemeScryptV1     = "scrypt-aes-gcm-v1"
	SchemeLegacySHA256 = "legacy-sha256"
)

const (
	// scrypt parameters for local key derivation
	// Security is prioritized over performance
	//
	// N=2^18 (~256MB RAM, 0.5-2s) - optimal balance:
	//   - Maximum security while remaining compatible with mobile devices
	//   - Brute-force attacks remain extremely expensive
	//
	// Note: N=2^20 (~1GB) fails on memory-constrained devices
	scryptN      = 1 << 18
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12
)

// envelope is the serialized ciphertext format. All binary fields are
// base64; the envelope itself travels as a JSON string inside wallet
// records and files.
type envelope struct {
	Scheme     string `json:"scheme,omitempty"`
	Salt       string `json:"salt,omitempty"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// encryptWithPassword seals plaintext under a scrypt-derived key and
// returns the tagged JSON envelope.
func encryptWithPassword(plaintext, password []byte) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	nonce, ciphertext, err := sealAESGCM(key, plaintext)
	if err != nil {
		return "", err
	}

	env := envelope{
		Scheme:     SchemeScryptV1,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(blob), nil
}

// decryptWithPassword opens a password-scheme envelope. Wrong password and
// corrupted input are indistinguishable: both return ErrDecryptionFailed.
func decryptWithPassword(blob string, password []byte) ([]byte, error) {
	env, err := parseEnvelope(blob)
	if err != nil {
		return nil, err
	}
	if env.Salt == "" {
		// Raw-key record, a password cannot open it
		return nil, model.ErrDecryptionFailed
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	return openEnvelope(env, key)
}

// DecryptWithPassword opens a password-scheme envelope with an explicit
// password, without consulting or touching any cached credentials. Callers
// use it to verify a password before installing it.
func DecryptWithPassword(blob string, password []byte) ([]byte, error) {
	return decryptWithPassword(blob, password)
}

// IsLegacy reports whether blob is a raw-key envelope, tagged or untagged.
// Malformed blobs are not legacy; they fail at decrypt time instead.
func IsLegacy(blob string) bool {
	env, err := parseEnvelope(blob)
	if err != nil {
		return false
	}
	if env.Scheme == SchemeLegacySHA256 {
		return true
	}
	return env.Scheme == "" && env.Salt == ""
}

// ReencryptLegacy opens a legacy raw-key envelope and reseals its payload
// under the current tagged password scheme. Used by the migration tool.
func ReencryptLegacy(blob string, rawKey, password []byte) (string, error) {
	plaintext, err := decryptWithRawKey(blob, rawKey)
	if err != nil {
		return "", err
	}
	defer clear(plaintext)
	return encryptWithPassword(plaintext, password)
}

// EncryptWithRawKey seals plaintext under SHA-256(rawKey). This is the
// legacy scheme writer; it exists only so the migration tool and
// compatibility tests can produce legacy-shaped records. Regular writes
// always use the password scheme.
func EncryptWithRawKey(plaintext, rawKey []byte) (string, error) {
	return encryptWithRawKey(plaintext, rawKey)
}

func encryptWithRawKey(plaintext, rawKey []byte) (string, error) {
	key := sha256.Sum256(rawKey)
	defer clear(key[:])

	nonce, ciphertext, err := sealAESGCM(key[:], plaintext)
	if err != nil {
		return "", err
	}

	env := envelope{
		Scheme:     SchemeLegacySHA256,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(blob), nil
}

// decryptWithRawKey opens a legacy raw-key envelope with SHA-256(rawKey).
func decryptWithRawKey(blob string, rawKey []byte) ([]byte, error) {
	env, err := parseEnvelope(blob)
	if err != nil {
		return nil, err
	}
	if env.Scheme == SchemeScryptV1 {
		return nil, model.ErrDecryptionFailed
	}

	key := sha256.Sum256(rawKey)
	defer clear(key[:])

	return openEnvelope(env, key[:])
}

func parseEnvelope(blob string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.CipherText == "" || env.Nonce == "" {
		return nil, fmt.Errorf("envelope missing required fields")
	}
	return &env, nil
}

func openEnvelope(env *envelope, key []byte) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.CipherText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, model.ErrDecryptionFailed
	}
	if len(plaintext) == 0 {
		return nil, model.ErrDecryptionFailed
	}
	return plaintext, nil
}

func sealAESGCM(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return nonce, aesGCM.Seal(nil, nonce, plaintext, nil), nil
}

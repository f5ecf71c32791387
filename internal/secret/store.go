// Package secret implements password-derived symmetric encryption of opaque
// payloads with a two-tier credential cache: the in-memory password first,
// then the session cache, so an unlock survives losing the in-memory copy
// without the password ever touching durable storage.
package secret

import (
	"errors"
	"sync"

	"github.com/tradefin/escrow-wallet/internal/model"

	"go.uber.org/zap"
)

// Store encrypts and decrypts byte payloads for the wallet layer.
type Store struct {
	mu       sync.Mutex
	password []byte
	session  *Session
	log      *zap.Logger
}

// NewStore creates a Store backed by session. A nil logger is replaced
// with a no-op one.
func NewStore(session *Session, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		session: session,
		log:     log,
	}
}

// SetPassword installs pw as the active secret for this session and
// mirrors it into the session cache so a rebuilt Store can recover it.
func (s *Store) SetPassword(pw []byte) {
	s.mu.Lock()
	clear(s.password)
	s.password = append([]byte(nil), pw...)
	s.mu.Unlock()
	s.session.SetPassword(pw)
}

// IsUnlocked reports whether a password is resolvable from memory or the
// session fallback.
func (s *Store) IsUnlocked() bool {
	pw := s.resolvePassword()
	if pw == nil {
		return false
	}
	clear(pw)
	return true
}

// Encrypt seals plaintext under the active password.
// Fails with ErrLocked if no password is resolvable.
func (s *Store) Encrypt(plaintext []byte) (string, error) {
	pw := s.resolvePassword()
	if pw == nil {
		return "", model.ErrLocked
	}
	defer clear(pw)
	return encryptWithPassword(plaintext, pw)
}

// Decrypt opens blob with the active password. Fails with ErrLocked if no
// password is resolvable, ErrDecryptionFailed on wrong password or
// corrupted input.
func (s *Store) Decrypt(blob string) ([]byte, error) {
	pw := s.resolvePassword()
	if pw == nil {
		return nil, model.ErrLocked
	}
	defer clear(pw)
	return decryptWithPassword(blob, pw)
}

// DecryptWithFallback opens blob with the active password first, then with
// the session raw key as the legacy-scheme alternate. Records written under
// the old raw-key scheme are not decryptable by password alone; the raw-key
// retry is what keeps them readable. Fails with ErrNoUsableKey only when
// every path fails.
func (s *Store) DecryptWithFallback(blob string) ([]byte, error) {
	if pw := s.resolvePassword(); pw != nil {
		plaintext, err := decryptWithPassword(blob, pw)
		clear(pw)
		if err == nil {
			return plaintext, nil
		}
		if !errors.Is(err, model.ErrDecryptionFailed) {
			return nil, err
		}
		s.log.Debug("password decryption failed, trying session raw key")
	}

	if raw := s.session.PrivateKey(); raw != nil {
		plaintext, err := decryptWithRawKey(blob, raw)
		clear(raw)
		if err == nil {
			return plaintext, nil
		}
	}

	return nil, model.ErrNoUsableKey
}

// SetSessionPrivateKey caches a decrypted raw private key in the session so
// later operations do not need to re-prompt for the password.
func (s *Store) SetSessionPrivateKey(key []byte) {
	s.session.SetPrivateKey(key)
}

// SessionPrivateKey returns a copy of the session-cached raw key, or nil.
// Caller must zero the returned slice after use.
func (s *Store) SessionPrivateKey() []byte {
	return s.session.PrivateKey()
}

// Clear wipes the in-memory password and the whole session cache.
// Safe to call repeatedly.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.password)
	s.password = nil
	s.mu.Unlock()
	s.session.Clear()
}

// resolvePassword returns a copy of the password from memory, falling back
// to the session cache. Caller must zero the returned slice.
func (s *Store) resolvePassword() []byte {
	s.mu.Lock()
	if len(s.password) > 0 {
		pw := append([]byte(nil), s.password...)
		s.mu.Unlock()
		return pw
	}
	s.mu.Unlock()
	return s.session.Password()
}

package secret

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// Session is the scope-bound credential cache that makes unlock sticky: a
// Store can be torn down and rebuilt (the reload case) around the same
// Session and stay unlocked. Eviction happens on explicit Clear, on process
// end, or after idleTimeout without any access. Nothing here is ever
// written to durable storage.
type Session struct {
	mu          sync.Mutex
	clk         clock.Clock
	idleTimeout time.Duration

	password   []byte
	privateKey []byte
	touched    time.Time
}

// NewSession creates a session cache. idleTimeout <= 0 disables the
// timeout; Clear is then the only eviction path.
func NewSession(clk clock.Clock, idleTimeout time.Duration) *Session {
	return &Session{
		clk:         clk,
		idleTimeout: idleTimeout,
	}
}

// SetPassword caches a copy of pw.
func (s *Session) SetPassword(pw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.password)
	s.password = append([]byte(nil), pw...)
	s.touched = s.clk.Now()
}

// Password returns a copy of the cached password, or nil if none is cached
// or the session has gone idle. Caller must zero the returned slice after use.
func (s *Session) Password() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked() {
		s.wipeLocked()
		return nil
	}
	if len(s.password) == 0 {
		return nil
	}
	s.touched = s.clk.Now()
	return append([]byte(nil), s.password...)
}

// SetPrivateKey caches a copy of a decrypted raw private key.
func (s *Session) SetPrivateKey(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.privateKey)
	s.privateKey = append([]byte(nil), key...)
	s.touched = s.clk.Now()
}

// PrivateKey returns a copy of the cached raw key, or nil.
// Caller must zero the returned slice after use.
func (s *Session) PrivateKey() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked() {
		s.wipeLocked()
		return nil
	}
	if len(s.privateKey) == 0 {
		return nil
	}
	s.touched = s.clk.Now()
	return append([]byte(nil), s.privateKey...)
}

// Clear wipes all cached credentials.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked()
}

func (s *Session) expiredLocked() bool {
	if s.idleTimeout <= 0 || s.touched.IsZero() {
		return false
	}
	return s.clk.Now().Sub(s.touched) > s.idleTimeout
}

func (s *Session) wipeLocked() {
	clear(s.password)
	clear(s.privateKey)
	s.password = nil
	s.privateKey = nil
	s.touched = time.Time{}
}

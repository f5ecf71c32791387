// Package wallet owns the master key pair: creation, import, the
// locked/unlocked lifecycle, signer acquisition per network and
// fund-moving operations through the network provider.
package wallet

import (
	"fmt"
	"sync"
	"time"

	"github.com/tradefin/escrow-wallet/internal/balance"
	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/internal/secret"
	"github.com/tradefin/escrow-wallet/internal/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

// Manager is the key manager for the single master wallet. The durable
// form is always ciphertext; the plaintext key lives here only while the
// manager is unlocked.
type Manager struct {
	mu        sync.Mutex
	secrets   *secret.Store
	local     *storage.Local
	providers *client.Providers
	cache     *balance.Cache
	clk       clock.Clock
	log       *zap.Logger

	current *model.MasterWallet
	privKey solana.PrivateKey
	signers map[string]*Signer

	cooldown time.Duration
	lastPay  time.Time
	payMu    sync.Mutex
}

// NewManager wires a key manager. cooldown throttles fund-moving
// operations; zero disables the throttle.
func NewManager(secrets *secret.Store, local *storage.Local, providers *client.Providers,
	cache *balance.Cache, clk clock.Clock, cooldown time.Duration, log *zap.Logger) *Manager {

	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		secrets:   secrets,
		local:     local,
		providers: providers,
		cache:     cache,
		clk:       clk,
		log:       log,
		signers:   make(map[string]*Signer),
		cooldown:  cooldown,
	}
}

// Unlock loads the persisted master wallet and decrypts its key with
// password, caching the plaintext in memory and in the session. The
// password is verified before anything is installed: a failed unlock
// leaves no trace of itself and cannot disturb credentials a previous
// unlock left behind.
func (m *Manager) Unlock(password []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.local.MasterWallet()
	if err != nil {
		return err
	}

	raw, err := secret.DecryptWithPassword(rec.EncryptedPrivateKey, password)
	if err != nil {
		return err
	}

	m.secrets.SetPassword(password)
	m.secrets.SetSessionPrivateKey(raw)
	m.current = rec
	m.privKey = solana.PrivateKey(raw)
	return nil
}

// Lock wipes the in-memory plaintext key, all memoized signers and the
// session credential cache. The durable ciphertext is untouched.
// Idempotent: locking a locked manager is a no-op.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.privKey)
	m.privKey = nil
	m.signers = make(map[string]*Signer)
	m.secrets.Clear()
}

// IsUnlocked reports whether a signer could be resolved right now, either
// from memory or by restoration from the session cache.
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.privKey != nil {
		return true
	}
	if raw := m.secrets.SessionPrivateKey(); raw != nil {
		clear(raw)
		return true
	}
	return m.secrets.IsUnlocked() && m.local.HasMasterWallet()
}

// Wallet returns the loaded master wallet record, reading it from local
// storage when needed. The record holds only ciphertext, so this works
// while locked.
func (m *Manager) Wallet() (*model.MasterWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walletLocked()
}

// Address returns the master wallet address, or "" when none is stored.
func (m *Manager) Address() string {
	rec, err := m.Wallet()
	if err != nil {
		return ""
	}
	return rec.Address
}

// Mnemonic decrypts and returns the recovery phrase for the backup flow.
// Wallets imported from a bare private key have none.
func (m *Manager) Mnemonic() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.walletLocked()
	if err != nil {
		return "", err
	}
	if rec.EncryptedMnemonic == "" {
		return "", model.ErrInvalidMnemonic
	}

	phrase, err := m.secrets.Decrypt(rec.EncryptedMnemonic)
	if err != nil {
		return "", err
	}
	return string(phrase), nil
}

// Delete locks the manager and removes the persisted master wallet blob.
func (m *Manager) Delete() error {
	m.Lock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.cache.ClearAll()
	return m.local.DeleteMasterWallet()
}

func (m *Manager) walletLocked() (*model.MasterWallet, error) {
	if m.current != nil {
		return m.current, nil
	}
	rec, err := m.local.MasterWallet()
	if err != nil {
		return nil, err
	}
	m.current = rec
	return rec, nil
}

// checkCooldown enforces the pay throttle shared by all fund-moving
// operations.
func (m *Manager) checkCooldown() error {
	if m.cooldown <= 0 {
		return nil
	}

	m.payMu.Lock()
	defer m.payMu.Unlock()

	if !m.lastPay.IsZero() {
		elapsed := m.clk.Now().Sub(m.lastPay)
		if elapsed < m.cooldown {
			remaining := m.cooldown - elapsed
			return fmt.Errorf("cooldown active, please wait %v", remaining.Round(time.Second))
		}
	}
	return nil
}

func (m *Manager) markPay() {
	m.payMu.Lock()
	m.lastPay = m.clk.Now()
	m.payMu.Unlock()
}

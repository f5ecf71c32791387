package wallet

import (
	"context"
	"fmt"

	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Signer is a key pair bound to one network's transport.
type Signer struct {
	networkID string
	key       solana.PrivateKey
	provider  client.Provider
}

// NewSigner binds a raw key to a network provider. Used by the sub-wallet
// registry for its per-operation signers.
func NewSigner(networkID string, key solana.PrivateKey, provider client.Provider) *Signer {
	return &Signer{networkID: networkID, key: key, provider: provider}
}

// Address returns the signer's public address.
func (s *Signer) Address() string {
	return s.key.PublicKey().String()
}

// NetworkID returns the network this signer is bound to.
func (s *Signer) NetworkID() string {
	return s.networkID
}

// SignMessage produces an ed25519 signature over msg.
func (s *Signer) SignMessage(msg []byte) ([]byte, error) {
	sig, err := s.key.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

// TransferNative submits a native transfer signed by this key.
func (s *Signer) TransferNative(ctx context.Context, toAddress string, lamports uint64) (string, error) {
	txID, err := s.provider.TransferNative(ctx, s.key, toAddress, lamports)
	if err != nil {
		return "", &model.TransactionFailedError{NetworkID: s.networkID, Cause: err}
	}
	return txID, nil
}

// TransferToken submits a token transfer signed by this key.
func (s *Signer) TransferToken(ctx context.Context, toAddress string, micro uint64) (string, error) {
	txID, err := s.provider.TransferToken(ctx, s.key, toAddress, micro)
	if err != nil {
		return "", &model.TransactionFailedError{NetworkID: s.networkID, Cause: err}
	}
	return txID, nil
}

// Signer returns the master signer for networkID, memoized per network.
// When no key is in memory it attempts restoration exactly once, in
// priority order: session raw key, then session password plus the stored
// ciphertext. Fails with ErrLocked when neither resolves.
func (m *Manager) Signer(networkID string) (*Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.signers[networkID]; ok {
		return s, nil
	}

	if err := m.restoreKeyLocked(); err != nil {
		return nil, err
	}

	prov, err := m.providers.For(networkID)
	if err != nil {
		return nil, err
	}

	s := NewSigner(networkID, m.privKey, prov)
	m.signers[networkID] = s
	return s, nil
}

// restoreKeyLocked resolves the plaintext master key into memory. Tried
// once per call, never in a loop.
func (m *Manager) restoreKeyLocked() error {
	if m.privKey != nil {
		return nil
	}

	if raw := m.secrets.SessionPrivateKey(); raw != nil {
		if len(raw) == 64 {
			m.privKey = solana.PrivateKey(raw)
			if _, err := m.walletLocked(); err != nil {
				m.log.Warn("restored session key without a stored wallet record", zap.Error(err))
			}
			return nil
		}
		clear(raw)
		m.log.Warn("ignoring session key of unexpected length", zap.Int("length", len(raw)))
	}

	if !m.secrets.IsUnlocked() {
		return model.ErrLocked
	}

	rec, err := m.walletLocked()
	if err != nil {
		return model.ErrLocked
	}
	raw, err := m.secrets.Decrypt(rec.EncryptedPrivateKey)
	if err != nil {
		return err
	}
	if len(raw) != 64 {
		clear(raw)
		return model.ErrInvalidPrivateKey
	}

	m.secrets.SetSessionPrivateKey(raw)
	m.privKey = solana.PrivateKey(raw)
	return nil
}

package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/tradefin/escrow-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/skip2/go-qrcode"
	"github.com/tyler-smith/go-bip39"
)

const networkSolana = "solana"

// Generated is a freshly derived key pair plus its recovery phrase.
// Produced by Generate and consumed by both wallet creation and the
// backup-and-verify flow.
type Generated struct {
	PrivateKey solana.PrivateKey
	Address    string
	Mnemonic   string
}

// Generate produces a new key pair with a 12-word BIP39 recovery phrase.
// Pure: no side effects, nothing is persisted.
func Generate() (*Generated, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	key := keyFromMnemonic(mnemonic)
	return &Generated{
		PrivateKey: key,
		Address:    key.PublicKey().String(),
		Mnemonic:   mnemonic,
	}, nil
}

// Create generates a fresh master wallet, encrypts it under password and
// persists it. The manager comes out unlocked. The mnemonic is returned
// exactly once, through the record's creation result.
func (m *Manager) Create(password []byte, displayName string) (*model.MasterWallet, string, error) {
	if m.local.HasMasterWallet() {
		return nil, "", model.ErrWalletExists
	}

	gen, err := Generate()
	if err != nil {
		return nil, "", err
	}
	defer clear(gen.PrivateKey)

	rec, err := m.install(password, gen.PrivateKey, gen.Mnemonic, displayName, false)
	if err != nil {
		return nil, "", err
	}
	return rec, gen.Mnemonic, nil
}

// ImportFromMnemonic derives the master wallet deterministically from a
// BIP39 phrase. Fails with ErrInvalidMnemonic on malformed input.
func (m *Manager) ImportFromMnemonic(password []byte, mnemonic, displayName string) (*model.MasterWallet, error) {
	if m.local.HasMasterWallet() {
		return nil, model.ErrWalletExists
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, model.ErrInvalidMnemonic
	}

	key := keyFromMnemonic(mnemonic)
	defer clear(key)

	return m.install(password, key, mnemonic, displayName, true)
}

// ImportFromPrivateKey installs a master wallet from a base58 private key.
// Fails with ErrInvalidPrivateKey on malformed input.
func (m *Manager) ImportFromPrivateKey(password []byte, privateKey, displayName string) (*model.MasterWallet, error) {
	if m.local.HasMasterWallet() {
		return nil, model.ErrWalletExists
	}

	key, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil || len(key) != 64 {
		return nil, model.ErrInvalidPrivateKey
	}
	defer clear(key)

	return m.install(password, key, "", displayName, true)
}

// install encrypts, persists and activates a master key pair. Shared tail
// of create and both imports; both paths come out unlocked.
func (m *Manager) install(password []byte, key solana.PrivateKey, mnemonic, displayName string, imported bool) (*model.MasterWallet, error) {
	m.secrets.SetPassword(password)

	encKey, err := m.secrets.Encrypt(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	var encMnemonic string
	if mnemonic != "" {
		encMnemonic, err = m.secrets.Encrypt([]byte(mnemonic))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt mnemonic: %w", err)
		}
	}

	address := key.PublicKey().String()
	qr, err := generateQRCode(address)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	rec := &model.MasterWallet{
		Network:             networkSolana,
		Address:             address,
		DisplayName:         displayName,
		QR:                  qr,
		EncryptedPrivateKey: encKey,
		EncryptedMnemonic:   encMnemonic,
		IsImported:          imported,
		CreatedAt:           m.clk.Now(),
	}
	if err := m.local.SaveMasterWallet(rec); err != nil {
		return nil, fmt.Errorf("failed to persist master wallet: %w", err)
	}

	m.secrets.SetSessionPrivateKey(key)

	m.mu.Lock()
	m.current = rec
	m.privKey = append(solana.PrivateKey(nil), key...)
	m.signers = make(map[string]*Signer)
	m.mu.Unlock()

	return rec, nil
}

// keyFromMnemonic derives the ed25519 key pair from the first 32 bytes of
// the BIP39 seed (empty passphrase).
func keyFromMnemonic(mnemonic string) solana.PrivateKey {
	seed := bip39.NewSeed(mnemonic, "")
	defer clear(seed)
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:32]))
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}

package model

import "time"

// MasterWallet is the durable form of the user's top-level wallet.
// The private key and mnemonic are ciphertext envelopes (see internal/secret);
// plaintext exists only transiently in session memory.
type MasterWallet struct {
	Network             string    `json:"network"`
	Address             string    `json:"address"`
	DisplayName         string    `json:"displayName"`
	QR                  string    `json:"QR"` // base64 PNG of the receive address
	EncryptedPrivateKey string    `json:"encryptedPrivateKey"`
	EncryptedMnemonic   string    `json:"encryptedMnemonic,omitempty"`
	IsImported          bool      `json:"isImported"`
	CreatedAt           time.Time `json:"createdAt"`
}

// SubWallet is a contract-scoped escrow key pair owned by a MasterWallet.
// EncryptedPrivateKey is a ciphertext envelope; the plaintext key is derived
// on demand, used for a single operation and discarded.
type SubWallet struct {
	Address             string     `json:"address"`
	Name                string     `json:"name"`
	EncryptedPrivateKey string     `json:"encryptedPrivateKey"`
	ContractID          string     `json:"contractId"`
	Purpose             string     `json:"purpose"`
	MainWalletAddress   string     `json:"mainWalletAddress"`
	CreatedAt           time.Time  `json:"createdAt"`
	ContractSigned      bool       `json:"contractSigned"`
	SignedAt            *time.Time `json:"signedAt,omitempty"`
}

// SignatureRecord is one entry in the local contract-attestation log.
type SignatureRecord struct {
	SubWalletAddress string    `json:"subWalletAddress"`
	ContractID       string    `json:"contractId"`
	SignerAddress    string    `json:"signerAddress"`
	Message          string    `json:"message"`
	Signature        string    `json:"signature"` // base64
	SignedAt         time.Time `json:"signedAt"`
}

// Settings holds non-secret wallet preferences persisted locally.
type Settings struct {
	SelectedNetwork string `json:"selectedNetwork"`
	Currency        string `json:"currency"`
	Theme           string `json:"theme"`
	AutoLockMinutes int    `json:"autoLockMinutes"`
}

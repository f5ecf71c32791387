// Package storage persists the non-volatile local state: the encrypted
// master wallet blob, the sub-wallet index, the invitation index, wallet
// settings and the contract signature log. Secret fields inside these
// records are ciphertext envelopes even at rest.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tradefin/escrow-wallet/internal/model"
)

const (
	masterFile      = "master.cwt"
	subWalletsFile  = "subwallets.json"
	invitationsFile = "invitations.json"
	settingsFile    = "settings.json"
	signaturesFile  = "signatures.json"
)

// Local is the durable local store rooted at one data directory.
type Local struct {
	mu  sync.Mutex
	dir string
}

// NewLocal creates the data directory if needed and returns the store.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

// SaveMasterWallet writes the encrypted master wallet blob.
func (l *Local) SaveMasterWallet(w *model.MasterWallet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeJSON(masterFile, w)
}

// MasterWallet reads the stored master wallet.
// Fails with ErrNoStoredWallet when none has been created yet.
func (l *Local) MasterWallet() (*model.MasterWallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var w model.MasterWallet
	if err := l.readJSON(masterFile, &w); err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrNoStoredWallet
		}
		return nil, err
	}
	return &w, nil
}

// HasMasterWallet reports whether a master wallet blob exists on disk.
func (l *Local) HasMasterWallet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(filepath.Join(l.dir, masterFile))
	return err == nil && info.Size() > 0
}

// DeleteMasterWallet removes the master wallet blob.
func (l *Local) DeleteMasterWallet() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(filepath.Join(l.dir, masterFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete master wallet: %w", err)
	}
	return nil
}

// SaveSubWallets writes the full sub-wallet index.
func (l *Local) SaveSubWallets(list []model.SubWallet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeJSON(subWalletsFile, list)
}

// SubWallets reads the sub-wallet index. Missing file means empty index.
func (l *Local) SubWallets() ([]model.SubWallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var list []model.SubWallet
	if err := l.readJSON(subWalletsFile, &list); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

// SaveInvitations writes the full invitation index.
func (l *Local) SaveInvitations(list []model.Invitation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeJSON(invitationsFile, list)
}

// Invitations reads the invitation index. Missing file means empty index.
func (l *Local) Invitations() ([]model.Invitation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var list []model.Invitation
	if err := l.readJSON(invitationsFile, &list); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

// SaveSettings writes wallet settings.
func (l *Local) SaveSettings(s *model.Settings) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeJSON(settingsFile, s)
}

// Settings reads wallet settings, or defaults when none are stored.
func (l *Local) Settings() (*model.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s model.Settings
	if err := l.readJSON(settingsFile, &s); err != nil {
		if os.IsNotExist(err) {
			return &model.Settings{
				SelectedNetwork: "mainnet-beta",
				Currency:        "USD",
				Theme:           "light",
				AutoLockMinutes: 30,
			}, nil
		}
		return nil, err
	}
	return &s, nil
}

// AppendSignature appends one record to the contract signature log.
func (l *Local) AppendSignature(rec model.SignatureRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var log []model.SignatureRecord
	if err := l.readJSON(signaturesFile, &log); err != nil && !os.IsNotExist(err) {
		return err
	}
	log = append(log, rec)
	return l.writeJSON(signaturesFile, log)
}

// Signatures reads the contract signature log.
func (l *Local) Signatures() ([]model.SignatureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var log []model.SignatureRecord
	if err := l.readJSON(signaturesFile, &log); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return log, nil
}

func (l *Local) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	// Add UTF-8 BOM for proper display in Windows
	utf8BOM := []byte{0xEF, 0xBB, 0xBF}
	if err := os.WriteFile(filepath.Join(l.dir, name), append(utf8BOM, data...), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (l *Local) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return err
	}

	// Skip UTF-8 BOM if present
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

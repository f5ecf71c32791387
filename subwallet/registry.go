// Package subwallet derives, persists and operates contract-scoped escrow
// key pairs. Every lookup funnels through one three-tier resolution path
// (memory, local snapshot, remote store) and every key decryption goes
// through the secret store's fallback order, so call sites never grow
// their own ad hoc recovery logic.
package subwallet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tradefin/escrow-wallet/internal/balance"
	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/invite"
	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/internal/secret"
	"github.com/tradefin/escrow-wallet/internal/storage"
	"github.com/tradefin/escrow-wallet/wallet"

	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

// Source identifies which tier satisfied a sub-wallet lookup.
type Source int

const (
	SourceMemory Source = iota
	SourceLocal
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Registry owns the sub-wallet index.
type Registry struct {
	manager   *wallet.Manager
	secrets   *secret.Store
	local     *storage.Local
	remote    *client.StoreClient
	providers *client.Providers
	cache     *balance.Cache
	prices    *client.PriceClient
	invites   *invite.Ledger
	clk       clock.Clock
	log       *zap.Logger

	mu        sync.Mutex
	byAddress map[string]*model.SubWallet
}

// Deps bundles the registry's collaborators.
type Deps struct {
	Manager   *wallet.Manager
	Secrets   *secret.Store
	Local     *storage.Local
	Remote    *client.StoreClient
	Providers *client.Providers
	Cache     *balance.Cache
	Prices    *client.PriceClient
	Invites   *invite.Ledger
	Clock     clock.Clock
	Log       *zap.Logger
}

// NewRegistry loads the locally persisted index into memory.
func NewRegistry(d Deps) (*Registry, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := &Registry{
		manager:   d.Manager,
		secrets:   d.Secrets,
		local:     d.Local,
		remote:    d.Remote,
		providers: d.Providers,
		cache:     d.Cache,
		prices:    d.Prices,
		invites:   d.Invites,
		clk:       d.Clock,
		log:       d.Log,
		byAddress: make(map[string]*model.SubWallet),
	}

	stored, err := d.Local.SubWallets()
	if err != nil {
		return nil, err
	}
	for i := range stored {
		sw := stored[i]
		r.byAddress[sw.Address] = &sw
	}
	return r, nil
}

// Create derives a new contract-scoped key pair, encrypts it at rest and
// indexes it. Requires the master wallet to be unlocked. The remote mirror
// is asynchronous and best-effort; the local copy stays authoritative for
// the session.
func (r *Registry) Create(contractID, purpose, title string) (*model.SubWallet, error) {
	if !r.manager.IsUnlocked() {
		return nil, model.ErrMainWalletLocked
	}

	keypair := solana.NewWallet()
	defer clear(keypair.PrivateKey)

	encKey, err := r.secrets.Encrypt(keypair.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt sub-wallet key: %w", err)
	}

	rec := &model.SubWallet{
		Address:             keypair.PublicKey().String(),
		Name:                buildName(title, contractID, purpose),
		EncryptedPrivateKey: encKey,
		ContractID:          contractID,
		Purpose:             purpose,
		MainWalletAddress:   r.manager.Address(),
		CreatedAt:           r.clk.Now(),
	}

	r.mu.Lock()
	r.byAddress[rec.Address] = rec
	err = r.persistLocked()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.mirror(rec)

	out := *rec
	return &out, nil
}

// Deactivate removes a sub-wallet from the active index and local
// snapshot. Any remote-persisted copy is the remote store's concern.
func (r *Registry) Deactivate(address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAddress[address]; !ok {
		return model.ErrSubWalletNotFound
	}
	delete(r.byAddress, address)
	r.cache.ClearWallet(address)
	return r.persistLocked()
}

// ForContract lists sub-wallets scoped to contractID.
func (r *Registry) ForContract(contractID string) []*model.SubWallet {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.SubWallet
	for _, sw := range r.byAddress {
		if sw.ContractID == contractID {
			cp := *sw
			out = append(out, &cp)
		}
	}
	return out
}

// resolve locates a sub-wallet record: in-memory index, then the local
// snapshot, then the remote store. Each tier runs only if the previous one
// missed; a remote hit repopulates both lower tiers. Fails with
// ErrSubWalletNotFound only after all three miss.
func (r *Registry) resolve(ctx context.Context, address string) (*model.SubWallet, Source, error) {
	r.mu.Lock()
	if sw, ok := r.byAddress[address]; ok {
		r.mu.Unlock()
		return sw, SourceMemory, nil
	}
	r.mu.Unlock()

	stored, err := r.local.SubWallets()
	if err != nil {
		r.log.Warn("failed to reload local sub-wallet snapshot", zap.Error(err))
	}
	r.mu.Lock()
	for i := range stored {
		sw := stored[i]
		if _, ok := r.byAddress[sw.Address]; !ok {
			r.byAddress[sw.Address] = &sw
		}
	}
	if sw, ok := r.byAddress[address]; ok {
		r.mu.Unlock()
		return sw, SourceLocal, nil
	}
	r.mu.Unlock()

	if r.remote.Enabled() {
		fetched, err := r.remote.SubWallets(ctx, r.manager.Address())
		if err != nil {
			r.log.Warn("failed to fetch sub-wallets from remote store", zap.Error(err))
		}
		r.mu.Lock()
		for i := range fetched {
			sw := fetched[i]
			if _, ok := r.byAddress[sw.Address]; !ok {
				r.byAddress[sw.Address] = &sw
			}
		}
		if sw, ok := r.byAddress[address]; ok {
			if err := r.persistLocked(); err != nil {
				r.log.Warn("failed to persist remotely recovered sub-wallets", zap.Error(err))
			}
			r.mu.Unlock()
			return sw, SourceRemote, nil
		}
		r.mu.Unlock()
	}

	return nil, 0, model.ErrSubWalletNotFound
}

// Resolve is the exported lookup; it returns a copy.
func (r *Registry) Resolve(ctx context.Context, address string) (*model.SubWallet, Source, error) {
	sw, src, err := r.resolve(ctx, address)
	if err != nil {
		return nil, src, err
	}
	out := *sw
	return &out, src, nil
}

// Signer decrypts a sub-wallet's key on demand and binds it to networkID.
// Unknown addresses return (nil, nil): many call sites probe
// optimistically. The caller must discard the signer after its single
// operation; sub-wallet plaintext is never cached.
func (r *Registry) Signer(ctx context.Context, address, networkID string) (*wallet.Signer, error) {
	sw, _, err := r.resolve(ctx, address)
	if err != nil {
		return nil, nil
	}

	raw, err := r.secrets.DecryptWithFallback(sw.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != 64 {
		clear(raw)
		return nil, model.ErrInvalidPrivateKey
	}

	prov, err := r.providers.For(networkID)
	if err != nil {
		clear(raw)
		return nil, err
	}
	return wallet.NewSigner(networkID, solana.PrivateKey(raw), prov), nil
}

// mirror pushes a record to the remote store in the background.
// Failure degrades to a log line; the local copy remains authoritative.
func (r *Registry) mirror(rec *model.SubWallet) {
	if !r.remote.Enabled() {
		return
	}
	cp := *rec
	go func() {
		if err := r.remote.PushSubWallet(context.Background(), &cp); err != nil {
			r.log.Warn("failed to mirror sub-wallet to remote store",
				zap.String("address", cp.Address), zap.Error(err))
		}
	}()
}

func (r *Registry) persistLocked() error {
	list := make([]model.SubWallet, 0, len(r.byAddress))
	for _, sw := range r.byAddress {
		list = append(list, *sw)
	}
	return r.local.SaveSubWallets(list)
}

// buildName produces the human-readable sub-wallet label.
func buildName(title, contractID, purpose string) string {
	label := title
	if label == "" {
		label = "Contract " + shortID(contractID)
	}
	return fmt.Sprintf("%s (%s)", label, purpose)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return strings.TrimSuffix(id[:8], "-")
}

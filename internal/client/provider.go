// Package client holds the external collaborators: the network provider,
// the remote durable store and the price oracle.
package client

import (
	"context"
	"sort"
	"sync"

	"github.com/tradefin/escrow-wallet/internal/model"
)

// Provider is the network collaborator for one networkId. Amounts are base
// units throughout: lamports for SOL, micro for USDC.
type Provider interface {
	// NativeBalance returns the SOL balance of address in lamports.
	NativeBalance(ctx context.Context, address string) (uint64, error)

	// TokenBalance returns the USDC balance of address in micro units.
	TokenBalance(ctx context.Context, address string) (uint64, error)

	// TransferNative signs and submits a SOL transfer from the key's
	// address, returning the transaction id.
	TransferNative(ctx context.Context, privateKey []byte, toAddress string, lamports uint64) (string, error)

	// TransferToken signs and submits a USDC transfer from the key's
	// address, returning the transaction id.
	TransferToken(ctx context.Context, privateKey []byte, toAddress string, micro uint64) (string, error)

	// EstimateFee returns the current fee for a simple transfer in lamports.
	EstimateFee(ctx context.Context) (uint64, error)
}

// Providers maps networkId to a Provider. Selection and endpoint fallback
// inside one network are the provider's own concern; this registry only
// answers "a working provider for networkId" or ErrNoProvider.
type Providers struct {
	mu        sync.RWMutex
	byNetwork map[string]Provider
}

// NewProviders creates an empty registry.
func NewProviders() *Providers {
	return &Providers{byNetwork: make(map[string]Provider)}
}

// Register installs a provider for networkID, replacing any previous one.
func (p *Providers) Register(networkID string, prov Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byNetwork[networkID] = prov
}

// For returns the provider for networkID or ErrNoProvider.
func (p *Providers) For(networkID string) (Provider, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prov, ok := p.byNetwork[networkID]
	if !ok {
		return nil, model.ErrNoProvider
	}
	return prov, nil
}

// Networks returns the registered network ids in stable order.
func (p *Providers) Networks() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.byNetwork))
	for id := range p.byNetwork {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

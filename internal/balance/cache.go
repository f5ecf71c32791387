// Package balance fronts network balance reads with a TTL cache and
// request coalescing so a many-widget consumer cannot hammer the provider.
package balance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/common"
	"github.com/tradefin/escrow-wallet/internal/model"

	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds snapshot staleness.
const DefaultTTL = 30 * time.Second

// Subscriber receives every successfully fetched fresh snapshot.
type Subscriber func(*model.BalanceSnapshot)

// Cache is a read-through balance cache keyed by (address, networkId).
// Concurrent gets for the same key share one in-flight network fetch.
type Cache struct {
	providers *client.Providers
	clk       clock.Clock
	ttl       time.Duration
	log       *zap.Logger

	mu        sync.Mutex
	snapshots map[string]*model.BalanceSnapshot
	group     singleflight.Group

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int
}

// New creates a cache. ttl <= 0 falls back to DefaultTTL.
func New(providers *client.Providers, clk clock.Clock, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		providers: providers,
		clk:       clk,
		ttl:       ttl,
		log:       log,
		snapshots: make(map[string]*model.BalanceSnapshot),
		subs:      make(map[int]Subscriber),
	}
}

// Get returns the cached snapshot when it is younger than the TTL and
// forceRefresh is false; otherwise it fetches. Callers racing on the same
// key observe a single shared fetch.
func (c *Cache) Get(ctx context.Context, address, networkID string, forceRefresh bool) (*model.BalanceSnapshot, error) {
	key := cacheKey(address, networkID)

	if !forceRefresh {
		c.mu.Lock()
		snap, ok := c.snapshots[key]
		c.mu.Unlock()
		if ok && c.clk.Now().Sub(snap.FetchedAt) < c.ttl {
			return snap, nil
		}
	}

	return c.fetch(ctx, key, address, networkID)
}

// Refresh always bypasses the cache.
func (c *Cache) Refresh(ctx context.Context, address, networkID string) (*model.BalanceSnapshot, error) {
	return c.fetch(ctx, cacheKey(address, networkID), address, networkID)
}

// RefreshAll refreshes address across all registered networks sequentially,
// returning whatever succeeded. One network's failure does not abort the
// others.
func (c *Cache) RefreshAll(ctx context.Context, address string) []*model.BalanceSnapshot {
	var out []*model.BalanceSnapshot
	for _, networkID := range c.providers.Networks() {
		snap, err := c.Refresh(ctx, address, networkID)
		if err != nil {
			c.log.Warn("balance refresh failed",
				zap.String("address", address),
				zap.String("networkId", networkID),
				zap.Error(err))
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Subscribe registers fn for every successful fresh fetch and returns the
// unsubscribe function.
func (c *Cache) Subscribe(fn Subscriber) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

// ClearWallet drops every cached snapshot for address across all networks.
func (c *Cache) ClearWallet(address string) {
	prefix := strings.ToLower(address) + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.snapshots {
		if strings.HasPrefix(key, prefix) {
			delete(c.snapshots, key)
		}
	}
}

// ClearAll resets the cache unconditionally. Used on logout.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = make(map[string]*model.BalanceSnapshot)
}

func (c *Cache) fetch(ctx context.Context, key, address, networkID string) (*model.BalanceSnapshot, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		prov, err := c.providers.For(networkID)
		if err != nil {
			return nil, err
		}

		native, err := prov.NativeBalance(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("failed to get native balance: %w", err)
		}
		tokenMicro, err := prov.TokenBalance(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("failed to get token balance: %w", err)
		}

		snap := &model.BalanceSnapshot{
			SubjectAddress: address,
			NetworkID:      networkID,
			NativeRaw:      native,
			Native:         common.LamportsToSOL(native),
			Tokens: []model.TokenAmount{
				{Symbol: "USDC", Raw: tokenMicro, Amount: common.MicroToUSDC(tokenMicro)},
			},
			FetchedAt: c.clk.Now(),
		}

		c.mu.Lock()
		c.snapshots[key] = snap
		c.mu.Unlock()

		c.notify(snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.BalanceSnapshot), nil
}

// notify delivers snap to each subscriber, isolating panics so one bad
// listener cannot break delivery to the rest.
func (c *Cache) notify(snap *model.BalanceSnapshot) {
	c.subMu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("balance subscriber panicked", zap.Any("panic", r))
				}
			}()
			fn(snap)
		}()
	}
}

func cacheKey(address, networkID string) string {
	return strings.ToLower(address) + "|" + networkID
}

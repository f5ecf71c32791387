package wallet

import (
	"context"
	"fmt"

	"github.com/tradefin/escrow-wallet/internal/common"
	"github.com/tradefin/escrow-wallet/internal/model"

	"go.uber.org/zap"
)

// FallbackFeeLamports is returned by EstimateFee when the provider cannot
// be reached. Fee estimation failure must never block a read-only view, so
// the path degrades to the flat base fee instead of failing.
const FallbackFeeLamports = 5000 // 0.000005 SOL

// Send submits a native SOL transfer from the master wallet.
// amount is a decimal SOL string.
func (m *Manager) Send(ctx context.Context, networkID, toAddress, amount string) (string, error) {
	if err := m.checkCooldown(); err != nil {
		return "", err
	}

	signer, err := m.Signer(networkID)
	if err != nil {
		return "", err
	}

	lamports, err := common.SOLToLamports(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}

	snap, err := m.cache.Refresh(ctx, signer.Address(), networkID)
	if err != nil {
		return "", fmt.Errorf("failed to check balance: %w", err)
	}
	fee := m.EstimateFee(ctx, networkID)
	if snap.NativeRaw < lamports+fee {
		return "", model.ErrInsufficientBalance
	}

	txID, err := signer.TransferNative(ctx, toAddress, lamports)
	if err != nil {
		return "", err
	}
	m.markPay()
	return txID, nil
}

// SendToken submits a USDC transfer from the master wallet.
// amount is a decimal USDC string.
func (m *Manager) SendToken(ctx context.Context, networkID, toAddress, amount string) (string, error) {
	if err := m.checkCooldown(); err != nil {
		return "", err
	}

	signer, err := m.Signer(networkID)
	if err != nil {
		return "", err
	}

	micro, err := common.USDCToMicro(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}

	snap, err := m.cache.Refresh(ctx, signer.Address(), networkID)
	if err != nil {
		return "", fmt.Errorf("failed to check balance: %w", err)
	}
	token := snap.Token("USDC")
	if token == nil || token.Raw < micro {
		return "", model.ErrInsufficientBalance
	}
	// The fee is still paid in SOL
	if snap.NativeRaw < m.EstimateFee(ctx, networkID) {
		return "", model.ErrInsufficientBalance
	}

	txID, err := signer.TransferToken(ctx, toAddress, micro)
	if err != nil {
		return "", err
	}
	m.markPay()
	return txID, nil
}

// EstimateFee returns the current transfer fee in lamports, degrading to
// FallbackFeeLamports on any provider failure.
func (m *Manager) EstimateFee(ctx context.Context, networkID string) uint64 {
	prov, err := m.providers.For(networkID)
	if err != nil {
		m.log.Warn("fee estimate unavailable, using fallback",
			zap.String("networkId", networkID), zap.Error(err))
		return FallbackFeeLamports
	}

	fee, err := prov.EstimateFee(ctx)
	if err != nil {
		m.log.Warn("fee estimate failed, using fallback",
			zap.String("networkId", networkID), zap.Error(err))
		return FallbackFeeLamports
	}
	return fee
}

// Balance reads the master wallet balance through the cache.
func (m *Manager) Balance(ctx context.Context, networkID string, forceRefresh bool) (*model.BalanceSnapshot, error) {
	rec, err := m.Wallet()
	if err != nil {
		return nil, err
	}
	return m.cache.Get(ctx, rec.Address, networkID, forceRefresh)
}

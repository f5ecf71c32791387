package subwallet

import (
	"context"
	"fmt"

	"github.com/tradefin/escrow-wallet/internal/common"
	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/wallet"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Supported currency identifiers.
const (
	CurrencySOL  = "SOL"
	CurrencyUSDC = "USDC"
)

// Balance reads a sub-wallet balance through the cache and attaches USD
// equivalents from the price table.
func (r *Registry) Balance(ctx context.Context, address, networkID string) (*model.SubWalletBalance, error) {
	if _, _, err := r.resolve(ctx, address); err != nil {
		return nil, err
	}

	snap, err := r.cache.Get(ctx, address, networkID, false)
	if err != nil {
		return nil, err
	}

	solUSD, usdcUSD := r.prices.USDRates(ctx)

	var usdcRaw uint64
	if token := snap.Token(CurrencyUSDC); token != nil {
		usdcRaw = token.Raw
	}

	solValue := common.MulRate(snap.NativeRaw, common.SOLDecimals, solUSD)
	usdcValue := common.MulRate(usdcRaw, common.USDCDecimals, usdcUSD)

	return &model.SubWalletBalance{
		Address:   address,
		NetworkID: networkID,
		SOL:       snap.Native,
		USDC:      common.MicroToUSDC(usdcRaw),
		SOLUSD:    solValue,
		USDCUSD:   usdcValue,
		TotalUSD:  common.AddUSD(solValue, usdcValue),
	}, nil
}

// Fund moves funds from the master wallet into a sub-wallet. Requires the
// master wallet to be unlocked. Fails with ErrUnsupportedCurrency for
// anything but SOL and USDC.
func (r *Registry) Fund(ctx context.Context, address, amount, networkID, currency string) (string, error) {
	if !r.manager.IsUnlocked() {
		return "", model.ErrMainWalletLocked
	}

	sw, _, err := r.resolve(ctx, address)
	if err != nil {
		return "", err
	}

	switch currency {
	case CurrencySOL:
		return r.manager.Send(ctx, networkID, sw.Address, amount)
	case CurrencyUSDC:
		return r.manager.SendToken(ctx, networkID, sw.Address, amount)
	default:
		return "", model.ErrUnsupportedCurrency
	}
}

// Transfer moves funds from a sub-wallet back to its master wallet. The
// steps run strictly in sequence: resolve the record, derive the key,
// verify the balance covers amount plus the fee estimate, then sign and
// submit. Nothing is signed before the balance check passes.
func (r *Registry) Transfer(ctx context.Context, address, amount, currency, networkID string) (string, error) {
	if !r.manager.IsUnlocked() {
		return "", model.ErrMainWalletLocked
	}

	sw, source, err := r.resolve(ctx, address)
	if err != nil {
		return "", err
	}
	if source != SourceMemory {
		r.log.Info("sub-wallet recovered for transfer",
			zap.String("address", address), zap.String("source", source.String()))
	}

	raw, err := r.secrets.DecryptWithFallback(sw.EncryptedPrivateKey)
	if err != nil {
		return "", err
	}
	defer clear(raw)
	if len(raw) != 64 {
		return "", model.ErrInvalidPrivateKey
	}

	snap, err := r.cache.Refresh(ctx, address, networkID)
	if err != nil {
		return "", fmt.Errorf("failed to check balance: %w", err)
	}
	fee := r.manager.EstimateFee(ctx, networkID)

	var micro, lamports uint64
	switch currency {
	case CurrencySOL:
		lamports, err = common.SOLToLamports(amount)
		if err != nil {
			return "", fmt.Errorf("invalid amount: %w", err)
		}
		if snap.NativeRaw < lamports+fee {
			return "", model.ErrInsufficientBalance
		}
	case CurrencyUSDC:
		micro, err = common.USDCToMicro(amount)
		if err != nil {
			return "", fmt.Errorf("invalid amount: %w", err)
		}
		token := snap.Token(CurrencyUSDC)
		if token == nil || token.Raw < micro {
			return "", model.ErrInsufficientBalance
		}
		// The network fee is still paid in SOL
		if snap.NativeRaw < fee {
			return "", model.ErrInsufficientBalance
		}
	default:
		return "", model.ErrUnsupportedCurrency
	}

	prov, err := r.providers.For(networkID)
	if err != nil {
		return "", err
	}
	signer := wallet.NewSigner(networkID, solana.PrivateKey(raw), prov)

	if currency == CurrencySOL {
		return signer.TransferNative(ctx, sw.MainWalletAddress, lamports)
	}
	return signer.TransferToken(ctx, sw.MainWalletAddress, micro)
}

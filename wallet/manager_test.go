package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tradefin/escrow-wallet/internal/balance"
	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/internal/secret"
	"github.com/tradefin/escrow-wallet/internal/storage"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeProvider is a canned-response network double that records transfers.
type fakeProvider struct {
	native    uint64
	token     uint64
	fee       uint64
	feeErr    error
	calls     int
	transfers []string
}

func (f *fakeProvider) NativeBalance(ctx context.Context, address string) (uint64, error) {
	f.calls++
	return f.native, nil
}

func (f *fakeProvider) TokenBalance(ctx context.Context, address string) (uint64, error) {
	f.calls++
	return f.token, nil
}

func (f *fakeProvider) TransferNative(ctx context.Context, privateKey []byte, toAddress string, lamports uint64) (string, error) {
	f.calls++
	f.transfers = append(f.transfers, toAddress)
	return "tx-native", nil
}

func (f *fakeProvider) TransferToken(ctx context.Context, privateKey []byte, toAddress string, micro uint64) (string, error) {
	f.calls++
	f.transfers = append(f.transfers, toAddress)
	return "tx-token", nil
}

func (f *fakeProvider) EstimateFee(ctx context.Context) (uint64, error) {
	return f.fee, f.feeErr
}

type managerEnv struct {
	manager  *Manager
	session  *secret.Session
	local    *storage.Local
	provider *fakeProvider
	clk      *clock.TestClock
}

func newManagerEnv(t *testing.T, cooldown time.Duration) *managerEnv {
	t.Helper()

	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	clk := clock.NewTestClock(testTime)
	session := secret.NewSession(clk, 30*time.Minute)
	secrets := secret.NewStore(session, nil)

	provider := &fakeProvider{fee: 5000}
	providers := client.NewProviders()
	providers.Register("devnet", provider)

	cache := balance.New(providers, clk, 30*time.Second, nil)
	return &managerEnv{
		manager:  NewManager(secrets, local, providers, cache, clk, cooldown, nil),
		session:  session,
		local:    local,
		provider: provider,
		clk:      clk,
	}
}

func TestCreateUnlockLockCycle(t *testing.T) {
	env := newManagerEnv(t, 0)
	m := env.manager

	rec, mnemonic, err := m.Create([]byte("pw"), "Main")
	require.NoError(t, err)
	require.NotEmpty(t, rec.Address)
	require.NotEmpty(t, rec.QR)
	require.NotEmpty(t, mnemonic)
	require.True(t, m.IsUnlocked())

	stored, err := m.Mnemonic()
	require.NoError(t, err)
	require.Equal(t, mnemonic, stored)

	m.Lock()
	require.False(t, m.IsUnlocked())
	m.Lock() // locking twice is a no-op
	require.False(t, m.IsUnlocked())

	// A failed unlock leaves the manager locked.
	err = m.Unlock([]byte("wrong"))
	require.ErrorIs(t, err, model.ErrDecryptionFailed)
	require.False(t, m.IsUnlocked())

	require.NoError(t, m.Unlock([]byte("pw")))
	require.True(t, m.IsUnlocked())
	require.Equal(t, rec.Address, m.Address())
}

// A failed re-unlock on an already-unlocked manager must not disturb the
// live session credentials.
func TestFailedReUnlockKeepsSessionIntact(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)
	require.True(t, env.manager.IsUnlocked())

	err = env.manager.Unlock([]byte("wrong"))
	require.ErrorIs(t, err, model.ErrDecryptionFailed)

	require.True(t, env.manager.IsUnlocked())
	require.NotNil(t, env.session.PrivateKey())
	_, err = env.manager.Signer("devnet")
	require.NoError(t, err)

	// The correct password still works afterwards.
	require.NoError(t, env.manager.Unlock([]byte("pw")))
}

func TestCreateRefusesSecondWallet(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)

	_, _, err = env.manager.Create([]byte("pw"), "Another")
	require.ErrorIs(t, err, model.ErrWalletExists)
	_, err = env.manager.ImportFromMnemonic([]byte("pw"), "whatever", "Another")
	require.ErrorIs(t, err, model.ErrWalletExists)
}

func TestImportFromMnemonicIsDeterministic(t *testing.T) {
	first := newManagerEnv(t, 0)
	rec, mnemonic, err := first.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)

	second := newManagerEnv(t, 0)
	imported, err := second.manager.ImportFromMnemonic([]byte("pw"), mnemonic, "Restored")
	require.NoError(t, err)
	require.Equal(t, rec.Address, imported.Address)
	require.True(t, imported.IsImported)
	require.True(t, second.manager.IsUnlocked())
}

func TestImportFromMnemonicRejectsGarbage(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, err := env.manager.ImportFromMnemonic([]byte("pw"), "not a valid phrase at all", "x")
	require.ErrorIs(t, err, model.ErrInvalidMnemonic)
	require.False(t, env.local.HasMasterWallet())
}

func TestImportFromPrivateKey(t *testing.T) {
	gen, err := Generate()
	require.NoError(t, err)

	env := newManagerEnv(t, 0)
	rec, err := env.manager.ImportFromPrivateKey([]byte("pw"), gen.PrivateKey.String(), "Imported")
	require.NoError(t, err)
	require.Equal(t, gen.Address, rec.Address)
	require.Empty(t, rec.EncryptedMnemonic)

	// A key-only wallet has no recovery phrase to back up.
	_, err = env.manager.Mnemonic()
	require.ErrorIs(t, err, model.ErrInvalidMnemonic)
}

func TestImportFromPrivateKeyRejectsGarbage(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, err := env.manager.ImportFromPrivateKey([]byte("pw"), "not-base58!!!", "x")
	require.ErrorIs(t, err, model.ErrInvalidPrivateKey)
}

func TestUnlockWithoutStoredWallet(t *testing.T) {
	env := newManagerEnv(t, 0)
	err := env.manager.Unlock([]byte("pw"))
	require.ErrorIs(t, err, model.ErrNoStoredWallet)
}

// A manager rebuilt around a live session restores its signer without a
// fresh password prompt.
func TestSignerRestoredFromSession(t *testing.T) {
	env := newManagerEnv(t, 0)
	rec, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)

	secrets := secret.NewStore(env.session, nil)
	cacheProviders := client.NewProviders()
	cacheProviders.Register("devnet", env.provider)
	cache := balance.New(cacheProviders, env.clk, 30*time.Second, nil)
	rebuilt := NewManager(secrets, env.local, cacheProviders, cache, env.clk, 0, nil)

	signer, err := rebuilt.Signer("devnet")
	require.NoError(t, err)
	require.Equal(t, rec.Address, signer.Address())
}

// A session key of the wrong length is ignored; restoration falls through
// to the password path instead of adopting a malformed key.
func TestSignerIgnoresMalformedSessionKey(t *testing.T) {
	env := newManagerEnv(t, 0)
	rec, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)

	env.session.SetPrivateKey([]byte{1, 2, 3})

	secrets := secret.NewStore(env.session, nil)
	cacheProviders := client.NewProviders()
	cacheProviders.Register("devnet", env.provider)
	cache := balance.New(cacheProviders, env.clk, 30*time.Second, nil)
	rebuilt := NewManager(secrets, env.local, cacheProviders, cache, env.clk, 0, nil)

	signer, err := rebuilt.Signer("devnet")
	require.NoError(t, err)
	require.Equal(t, rec.Address, signer.Address())

	// Restoration reinstated a well-formed session key.
	require.Len(t, env.session.PrivateKey(), 64)
}

func TestSignerWhileLocked(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)
	env.manager.Lock()

	_, err = env.manager.Signer("devnet")
	require.ErrorIs(t, err, model.ErrLocked)
}

func TestSendChecksBalanceWithFee(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)
	ctx := context.Background()

	// Exactly the amount but not the fee on top.
	env.provider.native = 1_000_000_000
	_, err = env.manager.Send(ctx, "devnet", "DestAddr", "1.0")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	require.Empty(t, env.provider.transfers)

	env.provider.native = 1_000_005_000
	txID, err := env.manager.Send(ctx, "devnet", "DestAddr", "1.0")
	require.NoError(t, err)
	require.Equal(t, "tx-native", txID)
	require.Equal(t, []string{"DestAddr"}, env.provider.transfers)
}

func TestSendTokenNeedsSOLForFee(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)
	ctx := context.Background()

	// Plenty of USDC, zero SOL for the fee.
	env.provider.token = 10_000_000
	env.provider.native = 0
	_, err = env.manager.SendToken(ctx, "devnet", "DestAddr", "5.0")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)

	env.provider.native = 5000
	txID, err := env.manager.SendToken(ctx, "devnet", "DestAddr", "5.0")
	require.NoError(t, err)
	require.Equal(t, "tx-token", txID)
}

func TestSendCooldown(t *testing.T) {
	env := newManagerEnv(t, 4*time.Minute)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)
	ctx := context.Background()
	env.provider.native = 10_000_000_000

	_, err = env.manager.Send(ctx, "devnet", "DestAddr", "1.0")
	require.NoError(t, err)

	_, err = env.manager.Send(ctx, "devnet", "DestAddr", "1.0")
	require.ErrorContains(t, err, "cooldown")

	env.clk.SetTime(testTime.Add(5 * time.Minute))
	_, err = env.manager.Send(ctx, "devnet", "DestAddr", "1.0")
	require.NoError(t, err)
}

func TestEstimateFeeFallback(t *testing.T) {
	env := newManagerEnv(t, 0)
	ctx := context.Background()

	require.Equal(t, uint64(FallbackFeeLamports), env.manager.EstimateFee(ctx, "no-such-net"))

	env.provider.fee = 0
	env.provider.feeErr = errors.New("rpc unavailable")
	require.Equal(t, uint64(FallbackFeeLamports), env.manager.EstimateFee(ctx, "devnet"))

	env.provider.feeErr = nil
	env.provider.fee = 7500
	require.Equal(t, uint64(7500), env.manager.EstimateFee(ctx, "devnet"))
}

func TestDeleteWipesEverything(t *testing.T) {
	env := newManagerEnv(t, 0)
	_, _, err := env.manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)

	require.NoError(t, env.manager.Delete())
	require.False(t, env.manager.IsUnlocked())
	require.False(t, env.local.HasMasterWallet())
	require.Nil(t, env.session.PrivateKey())
}

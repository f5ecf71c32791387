package subwallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tradefin/escrow-wallet/internal/balance"
	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/invite"
	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/internal/secret"
	"github.com/tradefin/escrow-wallet/internal/storage"
	"github.com/tradefin/escrow-wallet/wallet"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeProvider counts every network touch so tests can assert that locked
// operations never reach the provider.
type fakeProvider struct {
	native    uint64
	token     uint64
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
	f.calls++
	return 5000, nil
}

type registryEnv struct {
	registry *Registry
	manager  *wallet.Manager
	secrets  *secret.Store
	local    *storage.Local
	provider *fakeProvider
	ledger   *invite.Ledger
	clk      *clock.TestClock
}

// newRegistryEnv builds the full stack on a temp dir with the master wallet
// created and unlocked. remoteURL empty disables the remote store.
func newRegistryEnv(t *testing.T, remoteURL string) *registryEnv {
	t.Helper()

	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	clk := clock.NewTestClock(testTime)
	secrets := secret.NewStore(secret.NewSession(clk, 30*time.Minute), nil)

	provider := &fakeProvider{}
	providers := client.NewProviders()
	providers.Register("devnet", provider)

	cache := balance.New(providers, clk, 30*time.Second, nil)
	manager := wallet.NewManager(secrets, local, providers, cache, clk, 0, nil)
	_, _, err = manager.Create([]byte("pw"), "Main")
	require.NoError(t, err)

	ledger, err := invite.NewLedger(local, clk, nil)
	require.NoError(t, err)

	registry, err := NewRegistry(Deps{
		Manager:   manager,
		Secrets:   secrets,
		Local:     local,
		Remote:    client.NewStoreClient(remoteURL),
		Providers: providers,
		Cache:     cache,
		Prices:    client.NewPriceClient("", nil),
		Invites:   ledger,
		Clock:     clk,
		Log:       nil,
	})
	require.NoError(t, err)

	return &registryEnv{
		registry: registry,
		manager:  manager,
		secrets:  secrets,
		local:    local,
		provider: provider,
		ledger:   ledger,
		clk:      clk,
	}
}

func TestCreateRequiresUnlockedMaster(t *testing.T) {
	env := newRegistryEnv(t, "")
	env.manager.Lock()

	_, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.ErrorIs(t, err, model.ErrMainWalletLocked)
}

func TestCreateAndResolveFromMemory(t *testing.T) {
	env := newRegistryEnv(t, "")

	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)
	require.Equal(t, "Grain shipment (escrow)", sw.Name)
	require.Equal(t, env.manager.Address(), sw.MainWalletAddress)

	got, src, err := env.registry.Resolve(context.Background(), sw.Address)
	require.NoError(t, err)
	require.Equal(t, SourceMemory, src)
	require.Equal(t, sw.Address, got.Address)
}

func TestCreateNameFallsBackToContractID(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("abcdef1234567890", "escrow", "")
	require.NoError(t, err)
	require.Equal(t, "Contract abcdef12 (escrow)", sw.Name)
}

func TestResolveFromLocalSnapshot(t *testing.T) {
	env := newRegistryEnv(t, "")

	// A second registry built before the record existed has a cold index.
	stale, err := NewRegistry(Deps{
		Manager:   env.manager,
		Secrets:   env.secrets,
		Local:     env.local,
		Remote:    client.NewStoreClient(""),
		Providers: client.NewProviders(),
		Cache:     balance.New(client.NewProviders(), env.clk, time.Second, nil),
		Prices:    client.NewPriceClient("", nil),
		Invites:   env.ledger,
		Clock:     env.clk,
	})
	require.NoError(t, err)

	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)

	got, src, err := stale.Resolve(context.Background(), sw.Address)
	require.NoError(t, err)
	require.Equal(t, SourceLocal, src)
	require.Equal(t, sw.Address, got.Address)
}

func TestResolveFromRemoteStore(t *testing.T) {
	seed := newRegistryEnv(t, "")
	sw, err := seed.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sub-wallets", r.URL.Path)
		json.NewEncoder(w).Encode([]model.SubWallet{*sw})
	}))
	defer srv.Close()

	// A fresh environment with an empty local snapshot only finds the
	// record through the remote store.
	env := newRegistryEnv(t, srv.URL)
	got, src, err := env.registry.Resolve(context.Background(), sw.Address)
	require.NoError(t, err)
	require.Equal(t, SourceRemote, src)
	require.Equal(t, sw.Address, got.Address)

	// The remote hit repopulated the lower tiers.
	_, src, err = env.registry.Resolve(context.Background(), sw.Address)
	require.NoError(t, err)
	require.Equal(t, SourceMemory, src)

	stored, err := env.local.SubWallets()
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestResolveUnknownAddress(t *testing.T) {
	env := newRegistryEnv(t, "")
	_, _, err := env.registry.Resolve(context.Background(), "NoSuchAddr")
	require.ErrorIs(t, err, model.ErrSubWalletNotFound)
}

func TestSignerProbesUnknownAddressSilently(t *testing.T) {
	env := newRegistryEnv(t, "")
	signer, err := env.registry.Signer(context.Background(), "NoSuchAddr", "devnet")
	require.NoError(t, err)
	require.Nil(t, signer)
}

func TestDeactivate(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)

	require.NoError(t, env.registry.Deactivate(sw.Address))
	require.ErrorIs(t, env.registry.Deactivate(sw.Address), model.ErrSubWalletNotFound)

	// Deactivation also dropped it from the local snapshot.
	stored, err := env.local.SubWallets()
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestFundRoutesByCurrency(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)
	ctx := context.Background()
	env.provider.native = 10_000_000_000
	env.provider.token = 10_000_000

	txID, err := env.registry.Fund(ctx, sw.Address, "1.0", "devnet", CurrencySOL)
	require.NoError(t, err)
	require.Equal(t, "tx-native", txID)

	txID, err = env.registry.Fund(ctx, sw.Address, "5.0", "devnet", CurrencyUSDC)
	require.NoError(t, err)
	require.Equal(t, "tx-token", txID)
	require.Equal(t, []string{sw.Address, sw.Address}, env.provider.transfers)

	_, err = env.registry.Fund(ctx, sw.Address, "1.0", "devnet", "DOGE")
	require.ErrorIs(t, err, model.ErrUnsupportedCurrency)
}

// A locked engine must refuse a sub-wallet transfer before touching the
// network at all.
func TestTransferWhileLockedMakesNoNetworkCall(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)

	env.manager.Lock()
	env.provider.calls = 0

	_, err = env.registry.Transfer(context.Background(), sw.Address, "1.0", CurrencySOL, "devnet")
	require.ErrorIs(t, err, model.ErrMainWalletLocked)
	require.Zero(t, env.provider.calls)
}

func TestTransferChecksBalanceWithFee(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)
	ctx := context.Background()

	env.provider.native = 1_000_000_000
	_, err = env.registry.Transfer(ctx, sw.Address, "1.0", CurrencySOL, "devnet")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	require.Empty(t, env.provider.transfers)

	env.provider.native = 1_000_005_000
	txID, err := env.registry.Transfer(ctx, sw.Address, "1.0", CurrencySOL, "devnet")
	require.NoError(t, err)
	require.Equal(t, "tx-native", txID)

	// Funds flow back to the owning master wallet, nowhere else.
	require.Equal(t, []string{sw.MainWalletAddress}, env.provider.transfers)
}

func TestTransferTokenNeedsSOLForFee(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)
	ctx := context.Background()

	env.provider.token = 10_000_000
	env.provider.native = 0
	_, err = env.registry.Transfer(ctx, sw.Address, "5.0", CurrencyUSDC, "devnet")
	require.ErrorIs(t, err, model.ErrInsufficientBalance)

	env.provider.native = 5000
	txID, err := env.registry.Transfer(ctx, sw.Address, "5.0", CurrencyUSDC, "devnet")
	require.NoError(t, err)
	require.Equal(t, "tx-token", txID)
}

func TestBalanceUsesFallbackRates(t *testing.T) {
	env := newRegistryEnv(t, "")
	sw, err := env.registry.Create("contract-1", "escrow", "Grain shipment")
	require.NoError(t, err)

	env.provider.native = 2_000_000_000 // 2 SOL
	env.provider.token = 3_000_000      // 3 USDC

	bal, err := env.registry.Balance(context.Background(), sw.Address, "devnet")
	require.NoError(t, err)
	require.Equal(t, "2.000000000", bal.SOL)
	require.Equal(t, "3.000000", bal.USDC)
	// Fallback table: SOL at 100.00, USDC at 1.00.
	require.Equal(t, "200.00", bal.SOLUSD)
	require.Equal(t, "3.00", bal.USDCUSD)
	require.Equal(t, "203.00", bal.TotalUSD)
}

func TestInvitationAcceptFlow(t *testing.T) {
	env := newRegistryEnv(t, "")

	inv, err := env.registry.SendInvitation("InviteeAddr", model.ContractEscrow, model.ContractDetails{
		Title:    "Grain shipment",
		Amount:   "25000.00",
		Currency: "USDC",
	})
	require.NoError(t, err)
	require.Equal(t, model.InvitationPending, inv.Status)
	require.Equal(t, env.manager.Address(), inv.InviterAddress)

	sw, err := env.registry.AcceptInvitation(context.Background(), inv.ID, "contract-1")
	require.NoError(t, err)
	require.Equal(t, "contract-1", sw.ContractID)
	require.Equal(t, "Grain shipment (escrow participant)", sw.Name)

	// Acceptance is one-shot.
	_, err = env.registry.AcceptInvitation(context.Background(), inv.ID, "contract-1")
	require.ErrorIs(t, err, model.ErrInvitationAlreadyProcessed)
}

func TestAcceptExpiredInvitation(t *testing.T) {
	env := newRegistryEnv(t, "")
	inv, err := env.registry.SendInvitation("InviteeAddr", model.ContractEscrow, model.ContractDetails{Title: "Deal"})
	require.NoError(t, err)

	env.clk.SetTime(testTime.Add(8 * 24 * time.Hour))
	_, err = env.registry.AcceptInvitation(context.Background(), inv.ID, "contract-1")
	require.ErrorIs(t, err, model.ErrInvitationAlreadyProcessed)
}

// Accepting while the master wallet is locked must fail before the ledger
// transition: the invitation stays pending and accepting after unlock
// still yields the sub-wallet.
func TestAcceptInvitationWhileLockedLeavesItPending(t *testing.T) {
	env := newRegistryEnv(t, "")
	inv, err := env.registry.SendInvitation("InviteeAddr", model.ContractEscrow, model.ContractDetails{Title: "Deal"})
	require.NoError(t, err)

	env.manager.Lock()
	_, err = env.registry.AcceptInvitation(context.Background(), inv.ID, "contract-1")
	require.ErrorIs(t, err, model.ErrMainWalletLocked)

	got, err := env.ledger.Get(inv.ID)
	require.NoError(t, err)
	require.Equal(t, model.InvitationPending, got.Status)

	require.NoError(t, env.manager.Unlock([]byte("pw")))
	sw, err := env.registry.AcceptInvitation(context.Background(), inv.ID, "contract-1")
	require.NoError(t, err)
	require.Equal(t, "contract-1", sw.ContractID)
}

func TestPendingInvitationsMergeRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/invitations/") {
			invitee := strings.TrimPrefix(r.URL.Path, "/invitations/")
			json.NewEncoder(w).Encode([]model.Invitation{{
				ID:              "remote-inv-1",
				InviterAddress:  "RemoteInviter",
				InviteeAddress:  invitee,
				ContractType:    model.ContractEscrow,
				ContractDetails: model.ContractDetails{Title: "Remote deal"},
				Status:          model.InvitationPending,
				CreatedAt:       testTime,
				ExpiresAt:       testTime.Add(invite.TTL),
			}})
			return
		}
		json.NewEncoder(w).Encode([]model.SubWallet{})
	}))
	defer srv.Close()

	env := newRegistryEnv(t, srv.URL)
	pending := env.registry.PendingInvitations(context.Background())
	require.Len(t, pending, 1)
	require.Equal(t, "remote-inv-1", pending[0].ID)

	// The merged record is now in the local ledger.
	got, err := env.ledger.Get("remote-inv-1")
	require.NoError(t, err)
	require.Equal(t, model.InvitationPending, got.Status)

	// The local transition wins over the still-pending remote copy.
	_, err = env.ledger.Accept("remote-inv-1")
	require.NoError(t, err)
	require.Empty(t, env.registry.PendingInvitations(context.Background()))
}

func TestContractDraftsFromRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contracts/drafts" {
			json.NewEncoder(w).Encode([]model.ContractDraft{{
				ID:             "draft-1",
				CreatorAddress: "RemoteCreator",
				ContractType:   model.ContractEscrow,
				CreatedAt:      testTime,
			}})
			return
		}
		json.NewEncoder(w).Encode([]model.SubWallet{})
	}))
	defer srv.Close()

	env := newRegistryEnv(t, srv.URL)
	drafts, err := env.registry.ContractDrafts(context.Background())
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, "draft-1", drafts[0].ID)

	// Without a remote store there is nothing to list.
	off := newRegistryEnv(t, "")
	drafts, err = off.registry.ContractDrafts(context.Background())
	require.NoError(t, err)
	require.Empty(t, drafts)
}

func TestRemoteAcceptanceIsAuthoritative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "conflict", http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode([]model.SubWallet{})
	}))
	defer srv.Close()

	env := newRegistryEnv(t, srv.URL)
	inv, err := env.registry.SendInvitation("InviteeAddr", model.ContractEscrow, model.ContractDetails{Title: "Deal"})
	require.NoError(t, err)

	// The remote refusal blocks the local transition.
	_, err = env.registry.AcceptInvitation(context.Background(), inv.ID, "contract-1")
	require.Error(t, err)
	got, err := env.ledger.Get(inv.ID)
	require.NoError(t, err)
	require.Equal(t, model.InvitationPending, got.Status)
}

func TestSignContractTracksFullSignature(t *testing.T) {
	env := newRegistryEnv(t, "")
	ctx := context.Background()

	first, err := env.registry.Create("contract-1", "buyer", "Grain shipment")
	require.NoError(t, err)
	second, err := env.registry.Create("contract-1", "seller", "Grain shipment")
	require.NoError(t, err)

	resp, err := env.registry.SignContract(ctx, first.Address)
	require.NoError(t, err)
	require.False(t, resp.IsFullySigned)
	require.False(t, resp.FundsLocked)

	resp, err = env.registry.SignContract(ctx, second.Address)
	require.NoError(t, err)
	require.True(t, resp.IsFullySigned)
	require.True(t, resp.FundsLocked)

	records, err := env.local.Signatures()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		require.Equal(t, "contract-1", rec.ContractID)
		require.NotEmpty(t, rec.Signature)
	}
}

// escrowd serves the wallet and sub-wallet custody engine over HTTP.
package main

import (
	"net/http"
	"os"

	"github.com/tradefin/escrow-wallet/internal/api"
	"github.com/tradefin/escrow-wallet/internal/balance"
	"github.com/tradefin/escrow-wallet/internal/client"
	"github.com/tradefin/escrow-wallet/internal/config"
	"github.com/tradefin/escrow-wallet/internal/invite"
	"github.com/tradefin/escrow-wallet/internal/secret"
	"github.com/tradefin/escrow-wallet/internal/storage"
	"github.com/tradefin/escrow-wallet/subwallet"
	"github.com/tradefin/escrow-wallet/wallet"

	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("escrowd exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	local, err := storage.NewLocal(cfg.DataDir)
	if err != nil {
		return err
	}

	clk := clock.NewDefaultClock()
	session := secret.NewSession(clk, cfg.SessionIdleTimeout())
	secrets := secret.NewStore(session, log)

	providers := client.NewProviders()
	for networkID, rpcURL := range cfg.NetworkRPCURLs() {
		prov, err := client.NewSolanaClient(networkID, rpcURL)
		if err != nil {
			return err
		}
		providers.Register(networkID, prov)
	}

	cache := balance.New(providers, clk, cfg.BalanceTTL(), log)
	manager := wallet.NewManager(secrets, local, providers, cache, clk,
		cfg.PayCooldownDuration(), log)

	ledger, err := invite.NewLedger(local, clk, log)
	if err != nil {
		return err
	}

	registry, err := subwallet.NewRegistry(subwallet.Deps{
		Manager:   manager,
		Secrets:   secrets,
		Local:     local,
		Remote:    client.NewStoreClient(cfg.RemoteStoreURL),
		Providers: providers,
		Cache:     cache,
		Prices:    client.NewPriceClient(cfg.PriceAPIURL, log),
		Invites:   ledger,
		Clock:     clk,
		Log:       log,
	})
	if err != nil {
		return err
	}

	router := api.SetupRouter(manager, registry)

	log.Info("escrowd listening", zap.String("port", cfg.Port))
	return http.ListenAndServe(":"+cfg.Port, router)
}

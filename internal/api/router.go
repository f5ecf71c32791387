package api

import (
	"net/http"

	"github.com/tradefin/escrow-wallet/internal/handler"
	"github.com/tradefin/escrow-wallet/subwallet"
	"github.com/tradefin/escrow-wallet/wallet"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(manager *wallet.Manager, registry *subwallet.Registry) http.Handler {
	walletHandler := handler.NewWalletHandler(manager)
	subWalletHandler := handler.NewSubWalletHandler(registry)

	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Master wallet endpoints
	mux.HandleFunc("/wallet/create", walletHandler.Create)
	mux.HandleFunc("/wallet/import", walletHandler.Import)
	mux.HandleFunc("/wallet/unlock", walletHandler.Unlock)
	mux.HandleFunc("/wallet/lock", walletHandler.Lock)
	mux.HandleFunc("/wallet/balance", walletHandler.Balance)

	// Sub-wallet endpoints
	mux.HandleFunc("/sub-wallets/create", subWalletHandler.Create)
	mux.HandleFunc("/sub-wallets/balance", subWalletHandler.Balance)
	mux.HandleFunc("/sub-wallets/fund", subWalletHandler.Fund)
	mux.HandleFunc("/sub-wallets/transfer", subWalletHandler.Transfer)
	mux.HandleFunc("/sub-wallets/sign", subWalletHandler.Sign)

	// Invitation endpoints
	mux.HandleFunc("/invitations/send", subWalletHandler.Invite)
	mux.HandleFunc("/invitations/accept", subWalletHandler.Accept)
	mux.HandleFunc("/invitations/pending", subWalletHandler.Pending)

	// Contract draft endpoints
	mux.HandleFunc("/contracts/drafts", subWalletHandler.Drafts)

	return mux
}

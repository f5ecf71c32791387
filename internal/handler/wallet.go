package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/wallet"
)

// WalletHandler exposes master wallet operations
type WalletHandler struct {
	manager *wallet.Manager
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(manager *wallet.Manager) *WalletHandler {
	return &WalletHandler{manager: manager}
}

// Create handles POST /wallet/create
// @Summary      Create new master wallet
// @Description  Generates a master wallet, encrypts it under the given password and persists it
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateWalletRequest  true  "Creation data"
// @Success      200      {object}  model.CreateWalletResponse
// @Router       /wallet/create [post]
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	rec, mnemonic, err := h.manager.Create(password, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateWalletResponse{
		Success:  true,
		Address:  rec.Address,
		Mnemonic: mnemonic,
	})
}

// Import handles POST /wallet/import
// @Summary      Import master wallet
// @Description  Imports a master wallet from a mnemonic phrase or a base58 private key
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportWalletRequest  true  "Import data"
// @Success      200      {object}  model.CreateWalletResponse
// @Router       /wallet/import [post]
func (h *WalletHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ImportWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	var (
		rec *model.MasterWallet
		err error
	)
	switch {
	case req.Mnemonic != "":
		rec, err = h.manager.ImportFromMnemonic(password, req.Mnemonic, req.DisplayName)
	case req.PrivateKey != "":
		rec, err = h.manager.ImportFromPrivateKey(password, req.PrivateKey, req.DisplayName)
	default:
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "mnemonic or privateKey is required"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateWalletResponse{
		Success: true,
		Address: rec.Address,
	})
}

// Unlock handles POST /wallet/unlock
// @Summary      Unlock master wallet
// @Description  Decrypts the stored master key with the given password
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.UnlockRequest  true  "Unlock data"
// @Success      200      {object}  model.CreateWalletResponse
// @Router       /wallet/unlock [post]
func (h *WalletHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	if err := h.manager.Unlock(password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateWalletResponse{
		Success: true,
		Address: h.manager.Address(),
	})
}

// Lock handles POST /wallet/lock
// @Summary      Lock master wallet
// @Description  Wipes the in-memory key material; the stored ciphertext is untouched
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.CreateWalletResponse
// @Router       /wallet/lock [post]
func (h *WalletHandler) Lock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	h.manager.Lock()
	writeJSON(w, http.StatusOK, model.CreateWalletResponse{Success: true})
}

// Balance handles GET /wallet/balance
// @Summary      Get master wallet balance
// @Description  Reads the SOL and USDC balance through the cache
// @Tags         wallet
// @Produce      json
// @Param        networkId  query     string  false  "Network id"       default(mainnet-beta)
// @Param        refresh    query     bool    false  "Bypass the cache"
// @Success      200        {object}  model.BalanceSnapshot
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	networkID := r.URL.Query().Get("networkId")
	if networkID == "" {
		networkID = "mainnet-beta"
	}
	force := r.URL.Query().Get("refresh") == "true"

	snap, err := h.manager.Balance(r.Context(), networkID, force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

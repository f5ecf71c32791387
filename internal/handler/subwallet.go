package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/subwallet"
)

// SubWalletHandler exposes sub-wallet and invitation operations
type SubWalletHandler struct {
	registry *subwallet.Registry
}

// NewSubWalletHandler creates a new SubWalletHandler
func NewSubWalletHandler(registry *subwallet.Registry) *SubWalletHandler {
	return &SubWalletHandler{registry: registry}
}

// Create handles POST /sub-wallets/create
// @Summary      Create sub-wallet
// @Description  Derives a contract-scoped escrow sub-wallet; requires the master wallet to be unlocked
// @Tags         sub-wallets
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateSubWalletRequest  true  "Sub-wallet data"
// @Success      200      {object}  model.SubWallet
// @Router       /sub-wallets/create [post]
func (h *SubWalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateSubWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	sw, err := h.registry.Create(req.ContractID, req.Purpose, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

// Balance handles GET /sub-wallets/balance
// @Summary      Get sub-wallet balance
// @Description  Reads the sub-wallet balance with USD equivalents
// @Tags         sub-wallets
// @Produce      json
// @Param        address    query     string  true   "Sub-wallet address"
// @Param        networkId  query     string  false  "Network id"  default(mainnet-beta)
// @Success      200        {object}  model.SubWalletBalance
// @Router       /sub-wallets/balance [get]
func (h *SubWalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "address is required"})
		return
	}
	networkID := r.URL.Query().Get("networkId")
	if networkID == "" {
		networkID = "mainnet-beta"
	}

	bal, err := h.registry.Balance(r.Context(), address, networkID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// Fund handles POST /sub-wallets/fund
// @Summary      Fund sub-wallet
// @Description  Moves SOL or USDC from the master wallet into a sub-wallet
// @Tags         sub-wallets
// @Accept       json
// @Produce      json
// @Param        address  query     string             true  "Sub-wallet address"
// @Param        request  body      model.FundRequest  true  "Funding data"
// @Success      200      {object}  model.PayResponse
// @Router       /sub-wallets/fund [post]
func (h *SubWalletHandler) Fund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	var req model.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	txID, err := h.registry.Fund(r.Context(), address, req.Amount, req.NetworkID, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PayResponse{TxID: txID})
}

// Transfer handles POST /sub-wallets/transfer
// @Summary      Transfer from sub-wallet
// @Description  Moves SOL or USDC from a sub-wallet back to its master wallet
// @Tags         sub-wallets
// @Accept       json
// @Produce      json
// @Param        address  query     string                 true  "Sub-wallet address"
// @Param        request  body      model.TransferRequest  true  "Transfer data"
// @Success      200      {object}  model.PayResponse
// @Router       /sub-wallets/transfer [post]
func (h *SubWalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	var req model.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	txID, err := h.registry.Transfer(r.Context(), address, req.Amount, req.Currency, req.NetworkID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.PayResponse{TxID: txID})
}

// Sign handles POST /sub-wallets/sign
// @Summary      Sign contract attestation
// @Description  Signs an off-chain attestation with the sub-wallet key and logs it
// @Tags         sub-wallets
// @Produce      json
// @Param        address  query     string  true  "Sub-wallet address"
// @Success      200      {object}  model.SignContractResponse
// @Router       /sub-wallets/sign [post]
func (h *SubWalletHandler) Sign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	resp, err := h.registry.SignContract(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Invite handles POST /invitations/send
// @Summary      Send contract invitation
// @Description  Issues a pending invitation with a 7-day expiry
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        request  body      model.InviteRequest  true  "Invitation data"
// @Success      200      {object}  model.Invitation
// @Router       /invitations/send [post]
func (h *SubWalletHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	inv, err := h.registry.SendInvitation(req.InviteeAddress, req.ContractType, req.ContractDetails)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Accept handles POST /invitations/accept
// @Summary      Accept invitation
// @Description  Accepts a pending invitation and creates the accepting party's sub-wallet
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        id       query     string                    true  "Invitation id"
// @Param        request  body      model.AcceptInviteRequest  true  "Acceptance data"
// @Success      200      {object}  model.SubWallet
// @Router       /invitations/accept [post]
func (h *SubWalletHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	var req model.AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	sw, err := h.registry.AcceptInvitation(r.Context(), id, req.ContractID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

// Pending handles GET /invitations/pending
// @Summary      List pending invitations
// @Description  Lists effectively-pending invitations for the master wallet, merging in invitations recovered from the remote store; expiry is applied before the filter
// @Tags         invitations
// @Produce      json
// @Success      200  {array}  model.Invitation
// @Router       /invitations/pending [get]
func (h *SubWalletHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	invs := h.registry.PendingInvitations(r.Context())
	if invs == nil {
		invs = []*model.Invitation{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// Drafts handles GET /contracts/drafts
// @Summary      List contract drafts
// @Description  Lists contract drafts mirrored to the remote store
// @Tags         invitations
// @Produce      json
// @Success      200  {array}  model.ContractDraft
// @Router       /contracts/drafts [get]
func (h *SubWalletHandler) Drafts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	drafts, err := h.registry.ContractDrafts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if drafts == nil {
		drafts = []model.ContractDraft{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

package model

// CreateWalletRequest represents request for POST /wallet/create
type CreateWalletRequest struct {
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

// ImportWalletRequest represents request for POST /wallet/import.
// Exactly one of Mnemonic or PrivateKey must be set.
type ImportWalletRequest struct {
	Password    string `json:"password" binding:"required"`
	Mnemonic    string `json:"mnemonic,omitempty"`
	PrivateKey  string `json:"privateKey,omitempty"`
	DisplayName string `json:"displayName"`
}

// UnlockRequest represents request for POST /wallet/unlock
type UnlockRequest struct {
	Password string `json:"password" binding:"required"`
}

// CreateWalletResponse represents response for wallet create/import
type CreateWalletResponse struct {
	Success  bool   `json:"success"`
	Address  string `json:"address,omitempty"`
	Mnemonic string `json:"mnemonic,omitempty"` // returned once, at creation only
}

// PayResponse represents response for fund-moving operations
type PayResponse struct {
	TxID string `json:"txId"`
}

// CreateSubWalletRequest represents request for POST /sub-wallets/create
type CreateSubWalletRequest struct {
	ContractID string `json:"contractId" binding:"required"`
	Purpose    string `json:"purpose" binding:"required"`
	Title      string `json:"title,omitempty"`
}

// FundRequest represents request for POST /sub-wallets/fund
type FundRequest struct {
	Amount    string `json:"amount" binding:"required"`
	NetworkID string `json:"networkId" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
}

// TransferRequest represents request for POST /sub-wallets/transfer
type TransferRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
	NetworkID string `json:"networkId" binding:"required"`
}

// InviteRequest represents request for POST /invitations/send
type InviteRequest struct {
	InviteeAddress  string          `json:"inviteeAddress" binding:"required"`
	ContractType    ContractType    `json:"contractType" binding:"required"`
	ContractDetails ContractDetails `json:"contractDetails"`
}

// AcceptInviteRequest represents request for POST /invitations/accept
type AcceptInviteRequest struct {
	ContractID string `json:"contractId" binding:"required"`
}

// SignContractResponse represents response for POST /sub-wallets/sign
type SignContractResponse struct {
	IsFullySigned bool `json:"isFullySigned"`
	FundsLocked   bool `json:"fundsLocked"`
}

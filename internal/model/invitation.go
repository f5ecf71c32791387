package model

import "time"

// InvitationStatus invitation lifecycle state
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	InvitationExpired  InvitationStatus = "expired"
)

// Terminal reports whether no further transition may leave this status.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationRejected || s == InvitationExpired
}

// ContractType contract category an invitation refers to
type ContractType string

const (
	ContractTradeFinance ContractType = "trade_finance"
	ContractEscrow       ContractType = "escrow"
	ContractExportImport ContractType = "export_import"
)

// ContractDetails describes the contract an invitee is asked to join.
type ContractDetails struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Deadline    time.Time `json:"deadline"`
}

// Invitation is an offer from one wallet address to another to join a
// contract as a sub-wallet holder.
type Invitation struct {
	ID              string           `json:"id"`
	InviterAddress  string           `json:"inviterAddress"`
	InviteeAddress  string           `json:"inviteeAddress"`
	ContractType    ContractType     `json:"contractType"`
	ContractDetails ContractDetails  `json:"contractDetails"`
	Status          InvitationStatus `json:"status"`
	ExpiresAt       time.Time        `json:"expiresAt"`
	CreatedAt       time.Time        `json:"createdAt"`
	RespondedAt     *time.Time       `json:"respondedAt,omitempty"`
}

// EffectiveStatus applies the lazy expiry rule: a pending invitation past
// its ExpiresAt is expired regardless of the persisted status field.
func (inv *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if inv.Status == InvitationPending && now.After(inv.ExpiresAt) {
		return InvitationExpired
	}
	return inv.Status
}

// ContractDraft is a contract outline mirrored to the remote store before
// any party has accepted.
type ContractDraft struct {
	ID             string          `json:"id"`
	CreatorAddress string          `json:"creatorAddress"`
	ContractType   ContractType    `json:"contractType"`
	Details        ContractDetails `json:"details"`
	CreatedAt      time.Time       `json:"createdAt"`
}

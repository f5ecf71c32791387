package subwallet

import (
	"context"
	"fmt"

	"github.com/tradefin/escrow-wallet/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendInvitation issues a pending invitation from the master wallet to
// inviteeAddress and mirrors a contract draft to the remote store.
func (r *Registry) SendInvitation(inviteeAddress string, ct model.ContractType, details model.ContractDetails) (*model.Invitation, error) {
	inviter := r.manager.Address()
	if inviter == "" {
		return nil, model.ErrNoStoredWallet
	}

	inv, err := r.invites.Create(inviter, inviteeAddress, ct, details)
	if err != nil {
		return nil, err
	}

	if r.remote.Enabled() {
		draft := &model.ContractDraft{
			ID:             uuid.NewString(),
			CreatorAddress: inviter,
			ContractType:   ct,
			Details:        details,
			CreatedAt:      r.clk.Now(),
		}
		go func() {
			if err := r.remote.PushContractDraft(context.Background(), draft); err != nil {
				r.log.Warn("failed to mirror contract draft",
					zap.String("invitationId", inv.ID), zap.Error(err))
			}
		}()
	}

	return inv, nil
}

// PendingInvitations lists effectively-pending invitations for the master
// wallet address. Invitations known only to the remote store are merged
// into the local ledger first; a remote fetch failure degrades to the
// local view.
func (r *Registry) PendingInvitations(ctx context.Context) []*model.Invitation {
	address := r.manager.Address()
	if r.remote.Enabled() && address != "" {
		fetched, err := r.remote.Invitations(ctx, address)
		if err != nil {
			r.log.Warn("failed to fetch invitations from remote store", zap.Error(err))
		} else if err := r.invites.Merge(fetched); err != nil {
			r.log.Warn("failed to persist remotely recovered invitations", zap.Error(err))
		}
	}
	return r.invites.PendingFor(address)
}

// ContractDrafts lists the contract drafts mirrored to the remote store.
// Without a remote store there is nothing to list.
func (r *Registry) ContractDrafts(ctx context.Context) ([]model.ContractDraft, error) {
	if !r.remote.Enabled() {
		return nil, nil
	}
	return r.remote.ContractDrafts(ctx)
}

// AcceptInvitation accepts a pending invitation and creates the accepting
// party's sub-wallet scoped to contractID. Acceptance is authoritative
// server-side when a remote store is configured, so the remote call runs
// before the local transition. Fails with ErrInvitationAlreadyProcessed
// unless the invitation is effectively pending. The unlock check runs
// before anything commits: acceptance and sub-wallet creation are one
// unit, and a transition without the sub-wallet would be unrecoverable.
func (r *Registry) AcceptInvitation(ctx context.Context, id, contractID string) (*model.SubWallet, error) {
	if !r.manager.IsUnlocked() {
		return nil, model.ErrMainWalletLocked
	}

	inv, err := r.invites.Get(id)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvitationPending {
		return nil, model.ErrInvitationAlreadyProcessed
	}

	if r.remote.Enabled() {
		if err := r.remote.AcceptInvitation(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to accept invitation on remote store: %w", err)
		}
	}

	inv, err = r.invites.Accept(id)
	if err != nil {
		return nil, err
	}

	sw, err := r.Create(contractID, "escrow participant", inv.ContractDetails.Title)
	if err != nil {
		return nil, err
	}
	return sw, nil
}

// RejectInvitation rejects a pending invitation.
func (r *Registry) RejectInvitation(id string) (*model.Invitation, error) {
	return r.invites.Reject(id)
}

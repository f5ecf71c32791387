// Package invite tracks contract invitations through their
// pending/accepted/rejected/expired lifecycle. Expiry is lazy: it is
// evaluated at read time, never by a background timer, so an unswept ledger
// still reports correct effective status.
package invite

import (
	"sync"
	"time"

	"github.com/tradefin/escrow-wallet/internal/model"
	"github.com/tradefin/escrow-wallet/internal/storage"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"
)

// TTL is the invitation lifetime, fixed at creation.
const TTL = 7 * 24 * time.Hour

// Ledger is the invitation state machine. Terminal states are immutable;
// status never regresses.
type Ledger struct {
	mu    sync.Mutex
	clk   clock.Clock
	local *storage.Local
	log   *zap.Logger
	byID  map[string]*model.Invitation
}

// NewLedger loads the persisted invitation index.
func NewLedger(local *storage.Local, clk clock.Clock, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{
		clk:   clk,
		local: local,
		log:   log,
		byID:  make(map[string]*model.Invitation),
	}

	stored, err := local.Invitations()
	if err != nil {
		return nil, err
	}
	for i := range stored {
		inv := stored[i]
		l.byID[inv.ID] = &inv
	}
	return l, nil
}

// Create issues a new pending invitation with a 7-day expiry.
func (l *Ledger) Create(inviter, invitee string, ct model.ContractType, details model.ContractDetails) (*model.Invitation, error) {
	now := l.clk.Now()
	inv := &model.Invitation{
		ID:              uuid.NewString(),
		InviterAddress:  inviter,
		InviteeAddress:  invitee,
		ContractType:    ct,
		ContractDetails: details,
		Status:          model.InvitationPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(TTL),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[inv.ID] = inv
	if err := l.persistLocked(); err != nil {
		delete(l.byID, inv.ID)
		return nil, err
	}

	out := *inv
	return &out, nil
}

// Get returns a copy of the invitation with the lazy expiry rule applied.
func (l *Ledger) Get(id string) (*model.Invitation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.byID[id]
	if !ok {
		return nil, model.ErrInvitationNotFound
	}
	l.sweepLocked(inv)

	out := *inv
	return &out, nil
}

// Accept transitions a pending invitation to accepted. Expired, accepted
// and rejected invitations all fail with ErrInvitationAlreadyProcessed.
func (l *Ledger) Accept(id string) (*model.Invitation, error) {
	return l.respond(id, model.InvitationAccepted)
}

// Reject transitions a pending invitation to rejected.
func (l *Ledger) Reject(id string) (*model.Invitation, error) {
	return l.respond(id, model.InvitationRejected)
}

// PendingFor lists effectively-pending invitations addressed to address.
// The expiry check runs before the filter.
func (l *Ledger) PendingFor(address string) []*model.Invitation {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*model.Invitation
	for _, inv := range l.byID {
		l.sweepLocked(inv)
		if inv.InviteeAddress == address && inv.Status == model.InvitationPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out
}

// Merge imports invitations recovered from the remote store. Local records
// win: a known id is never overwritten, so a local terminal status cannot
// regress to the remote copy's pending.
func (l *Ledger) Merge(list []model.Invitation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := false
	for i := range list {
		inv := list[i]
		if inv.ID == "" {
			continue
		}
		if _, ok := l.byID[inv.ID]; ok {
			continue
		}
		l.byID[inv.ID] = &inv
		added = true
	}
	if !added {
		return nil
	}
	return l.persistLocked()
}

func (l *Ledger) respond(id string, to model.InvitationStatus) (*model.Invitation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv, ok := l.byID[id]
	if !ok {
		return nil, model.ErrInvitationNotFound
	}
	l.sweepLocked(inv)

	if inv.Status != model.InvitationPending {
		return nil, model.ErrInvitationAlreadyProcessed
	}

	now := l.clk.Now()
	inv.Status = to
	inv.RespondedAt = &now
	if err := l.persistLocked(); err != nil {
		return nil, err
	}

	out := *inv
	return &out, nil
}

// sweepLocked applies the lazy expiry transition to one record. Persisting
// the swept status is best-effort: the effective status is already correct
// without it.
func (l *Ledger) sweepLocked(inv *model.Invitation) {
	if inv.EffectiveStatus(l.clk.Now()) == model.InvitationExpired && inv.Status == model.InvitationPending {
		inv.Status = model.InvitationExpired
		if err := l.persistLocked(); err != nil {
			l.log.Warn("failed to persist expired invitation", zap.String("id", inv.ID), zap.Error(err))
		}
	}
}

func (l *Ledger) persistLocked() error {
	list := make([]model.Invitation, 0, len(l.byID))
	for _, inv := range l.byID {
		list = append(list, *inv)
	}
	return l.local.SaveInvitations(list)
}

package subwallet

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tradefin/escrow-wallet/internal/model"

	"github.com/gagliardetto/solana-go"
)

// SignContract produces a signed attestation binding the signer identity,
// the sub-wallet address and a timestamp, and appends it to the local
// signature log. This is a lightweight off-chain attestation, not an
// on-chain action. Funds are reported locked once every party's sub-wallet
// for the contract has signed.
func (r *Registry) SignContract(ctx context.Context, address string) (*model.SignContractResponse, error) {
	sw, _, err := r.resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	raw, err := r.secrets.DecryptWithFallback(sw.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	defer clear(raw)
	if len(raw) != 64 {
		return nil, model.ErrInvalidPrivateKey
	}

	now := r.clk.Now()
	message := fmt.Sprintf("contract:%s|subwallet:%s|signer:%s|signedAt:%d",
		sw.ContractID, sw.Address, sw.MainWalletAddress, now.Unix())

	key := solana.PrivateKey(raw)
	sig, err := key.Sign([]byte(message))
	if err != nil {
		return nil, fmt.Errorf("failed to sign attestation: %w", err)
	}

	if err := r.local.AppendSignature(model.SignatureRecord{
		SubWalletAddress: sw.Address,
		ContractID:       sw.ContractID,
		SignerAddress:    sw.MainWalletAddress,
		Message:          message,
		Signature:        base64.StdEncoding.EncodeToString(sig[:]),
		SignedAt:         now,
	}); err != nil {
		return nil, fmt.Errorf("failed to append signature log: %w", err)
	}

	r.mu.Lock()
	if rec, ok := r.byAddress[address]; ok {
		rec.ContractSigned = true
		rec.SignedAt = &now
	}
	fullySigned := true
	for _, other := range r.byAddress {
		if other.ContractID == sw.ContractID && !other.ContractSigned {
			fullySigned = false
			break
		}
	}
	err = r.persistLocked()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &model.SignContractResponse{
		IsFullySigned: fullySigned,
		FundsLocked:   fullySigned,
	}, nil
}

package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/tradefin/escrow-wallet/internal/common"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// USDC mint address on Solana mainnet (does not exist on devnet/testnet)
	usdcMintAddressMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// USDC-Dev mint on devnet, used on non-mainnet clusters
	usdcMintAddressDevnet = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
)

// SolanaClient implements Provider for one Solana cluster.
type SolanaClient struct {
	rpcClient     *rpc.Client
	networkID     string
	rpcURL        string
	mintPublicKey solana.PublicKey
}

// NewSolanaClient creates a provider for the given cluster.
func NewSolanaClient(networkID, rpcURL string) (*SolanaClient, error) {
	mint := usdcMintAddressMainnet
	if networkID != "mainnet-beta" {
		mint = usdcMintAddressDevnet
	}
	mintPubKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC mint address: %w", err)
	}

	return &SolanaClient{
		rpcClient:     rpc.New(rpcURL),
		networkID:     networkID,
		rpcURL:        rpcURL,
		mintPublicKey: mintPubKey,
	}, nil
}

// NativeBalance gets the SOL balance of address in lamports.
func (c *SolanaClient) NativeBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid Solana address: %w", err)
	}

	balance, err := c.rpcClient.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	return balance.Value, nil
}

// TokenBalance gets the USDC balance of address in micro units. An address
// without an associated token account has a zero balance, not an error.
func (c *SolanaClient) TokenBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid Solana address: %w", err)
	}

	ataAddress, _, err := solana.FindAssociatedTokenAddress(pubkey, c.mintPublicKey)
	if err != nil {
		return 0, fmt.Errorf("failed to find associated token account address: %w", err)
	}

	balance, err := c.rpcClient.GetTokenAccountBalance(ctx, ataAddress, rpc.CommitmentConfirmed)
	if err != nil {
		if isATANotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get token account balance: %w", err)
	}

	amount, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse USDC balance amount: %w", err)
	}
	return amount, nil
}

// TransferNative signs and submits a SOL transfer.
func (c *SolanaClient) TransferNative(ctx context.Context, privateKey []byte, toAddress string, lamports uint64) (string, error) {
	wallet, err := walletFromKey(privateKey)
	if err != nil {
		return "", err
	}

	toPubkey, err := solana.PublicKeyFromBase58(toAddress)
	if err != nil {
		return "", fmt.Errorf("invalid to address: %w", err)
	}

	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	transferInstruction := system.NewTransferInstruction(
		lamports,
		wallet.PublicKey(),
		toPubkey,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	return c.signAndSend(ctx, tx, wallet)
}

// TransferToken signs and submits a USDC transfer, creating the recipient's
// associated token account when it does not exist yet.
func (c *SolanaClient) TransferToken(ctx context.Context, privateKey []byte, toAddress string, micro uint64) (string, error) {
	wallet, err := walletFromKey(privateKey)
	if err != nil {
		return "", err
	}

	toPubkey, err := solana.PublicKeyFromBase58(toAddress)
	if err != nil {
		return "", fmt.Errorf("invalid to address: %w", err)
	}

	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	sourceTokenAccount, _, err := solana.FindAssociatedTokenAddress(wallet.PublicKey(), c.mintPublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to find source token account address: %w", err)
	}

	destTokenAccount, _, err := solana.FindAssociatedTokenAddress(toPubkey, c.mintPublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to find destination token account: %w", err)
	}

	destAccountInfo, err := c.rpcClient.GetAccountInfo(ctx, destTokenAccount)
	if err != nil && !isATANotFoundError(err) {
		return "", fmt.Errorf("failed to get destination account info: %w", err)
	}
	needCreateATA := isATANotFoundError(err) || destAccountInfo.Value == nil

	transferInstruction := token.NewTransferCheckedInstruction(
		micro,
		common.USDCDecimals,
		sourceTokenAccount,
		c.mintPublicKey,
		destTokenAccount,
		wallet.PublicKey(),
		[]solana.PublicKey{},
	).Build()

	instructions := []solana.Instruction{transferInstruction}
	if needCreateATA {
		createATAInstruction := associatedtokenaccount.NewCreateInstruction(
			wallet.PublicKey(), // payer
			toPubkey,           // owner
			c.mintPublicKey,    // mint
		).Build()
		instructions = []solana.Instruction{createATAInstruction, transferInstruction}
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	return c.signAndSend(ctx, tx, wallet)
}

// EstimateFee asks the cluster for the fee of a minimal self-transfer
// message. Callers are expected to substitute a fallback on error.
func (c *SolanaClient) EstimateFee(ctx context.Context) (uint64, error) {
	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	// Throwaway key: the message is only priced, never submitted.
	probe := solana.NewWallet()
	transferInstruction := system.NewTransferInstruction(
		1,
		probe.PublicKey(),
		probe.PublicKey(),
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(probe.PublicKey()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create fee probe: %w", err)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("failed to marshal fee probe: %w", err)
	}

	fee, err := c.rpcClient.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(msg), rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get fee for message: %w", err)
	}
	if fee.Value == nil {
		return 0, fmt.Errorf("cluster returned no fee for message")
	}
	return *fee.Value, nil
}

func (c *SolanaClient) signAndSend(ctx context.Context, tx *solana.Transaction, wallet solana.PrivateKey) (string, error) {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if wallet.PublicKey().Equals(key) {
			return &wallet
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false, // Transaction validation before node
			PreflightCommitment: rpc.CommitmentFinalized,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig.String(), nil
}

// walletFromKey validates a full 64-byte ed25519 key.
func walletFromKey(privateKey []byte) (solana.PrivateKey, error) {
	if len(privateKey) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes")
	}
	return solana.PrivateKey(privateKey), nil
}

func isATANotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "could not find account") ||
		strings.Contains(msg, "Account does not exist") ||
		strings.Contains(msg, "not found")
}

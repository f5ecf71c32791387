package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tradefin/escrow-wallet/internal/model"
)

// StoreClient talks to the remote durable store. Everything it mirrors is
// best-effort except invitation acceptance, which is authoritative
// server-side.
type StoreClient struct {
	baseURL string
	client  *http.Client
}

// NewStoreClient creates a client for the remote store. An empty baseURL
// yields a disabled client whose calls all fail; callers treat those
// failures as a degraded mirror.
func NewStoreClient(baseURL string) *StoreClient {
	return &StoreClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Enabled reports whether a remote store endpoint is configured.
func (c *StoreClient) Enabled() bool {
	return c.baseURL != ""
}

// PushSubWallet mirrors a sub-wallet record. POST /sub-wallets
func (c *StoreClient) PushSubWallet(ctx context.Context, sw *model.SubWallet) error {
	return c.post(ctx, "/sub-wallets", sw, nil)
}

// SubWallets fetches sub-wallet records for a main wallet.
// GET /sub-wallets?walletAddress=
func (c *StoreClient) SubWallets(ctx context.Context, walletAddress string) ([]model.SubWallet, error) {
	var out []model.SubWallet
	path := "/sub-wallets?walletAddress=" + url.QueryEscape(walletAddress)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptInvitation records the acceptance server-side.
// POST /invitations/{id}/accept
func (c *StoreClient) AcceptInvitation(ctx context.Context, id string) error {
	return c.post(ctx, "/invitations/"+url.PathEscape(id)+"/accept", nil, nil)
}

// Invitations fetches invitations addressed to address.
// GET /invitations/{address}
func (c *StoreClient) Invitations(ctx context.Context, address string) ([]model.Invitation, error) {
	var out []model.Invitation
	if err := c.get(ctx, "/invitations/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PushContractDraft mirrors a contract draft. POST /contracts/drafts
func (c *StoreClient) PushContractDraft(ctx context.Context, draft *model.ContractDraft) error {
	return c.post(ctx, "/contracts/drafts", draft, nil)
}

// ContractDrafts fetches all contract drafts. GET /contracts/drafts
func (c *StoreClient) ContractDrafts(ctx context.Context) ([]model.ContractDraft, error) {
	var out []model.ContractDraft
	if err := c.get(ctx, "/contracts/drafts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) get(ctx context.Context, path string, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("remote store not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote store returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode remote store response: %w", err)
	}
	return nil
}

func (c *StoreClient) post(ctx context.Context, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("remote store not configured")
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("remote store returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode remote store response: %w", err)
		}
	}
	return nil
}

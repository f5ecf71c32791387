package model

import "time"

// TokenAmount is one token position inside a snapshot.
type TokenAmount struct {
	Symbol string `json:"symbol"`
	Raw    uint64 `json:"raw"`    // base units
	Amount string `json:"amount"` // decimal string
}

// BalanceSnapshot is an immutable point-in-time balance read for one
// (address, network) pair. A refresh produces a new snapshot, never a
// mutation.
type BalanceSnapshot struct {
	SubjectAddress string        `json:"subjectAddress"`
	NetworkID      string        `json:"networkId"`
	NativeRaw      uint64        `json:"nativeRaw"` // lamports
	Native         string        `json:"native"`    // SOL, decimal string
	Tokens         []TokenAmount `json:"tokens"`
	FetchedAt      time.Time     `json:"fetchedAt"`
}

// Token returns the position for symbol, or nil.
func (s *BalanceSnapshot) Token(symbol string) *TokenAmount {
	for i := range s.Tokens {
		if s.Tokens[i].Symbol == symbol {
			return &s.Tokens[i]
		}
	}
	return nil
}

// SubWalletBalance is a sub-wallet balance enriched with USD equivalents.
type SubWalletBalance struct {
	Address   string `json:"address"`
	NetworkID string `json:"networkId"`
	SOL       string `json:"sol"`
	USDC      string `json:"usdc"`
	SOLUSD    string `json:"sol_usd"`
	USDCUSD   string `json:"usdc_usd"`
	TotalUSD  string `json:"total_usd"`
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Load it once at startup and pass it by reference; there is no global
// instance.
type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// Solana cluster RPC endpoints; an empty URL disables the network.
	MainnetRPCURL string `envconfig:"MAINNET_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	DevnetRPCURL  string `envconfig:"DEVNET_RPC_URL" default:"https://api.devnet.solana.com"`
	TestnetRPCURL string `envconfig:"TESTNET_RPC_URL" default:""`

	RemoteStoreURL string `envconfig:"REMOTE_STORE_URL" default:""`
	PriceAPIURL    string `envconfig:"PRICE_API_URL" default:"https://api.coingecko.com/api/v3"`

	BalanceTTLSeconds  int `envconfig:"BALANCE_TTL_SECONDS" default:"30"`
	SessionIdleMinutes int `envconfig:"SESSION_IDLE_MINUTES" default:"30"`
	PayCooldown        int `envconfig:"PAY_COOLDOWN_MINUTES" default:"4"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return cfg, nil
}

// NetworkRPCURLs returns the configured networks keyed by networkId.
func (c *Config) NetworkRPCURLs() map[string]string {
	urls := make(map[string]string)
	for id, url := range map[string]string{
		"mainnet-beta": c.MainnetRPCURL,
		"devnet":       c.DevnetRPCURL,
		"testnet":      c.TestnetRPCURL,
	} {
		if url != "" {
			urls[id] = url
		}
	}
	return urls
}

// BalanceTTL returns the balance cache TTL as a duration.
func (c *Config) BalanceTTL() time.Duration {
	return time.Duration(c.BalanceTTLSeconds) * time.Second
}

// SessionIdleTimeout returns the session credential-cache idle timeout.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// PayCooldownDuration returns the minimum interval between outbound payments.
func (c *Config) PayCooldownDuration() time.Duration {
	return time.Duration(c.PayCooldown) * time.Minute
}

// PromptForPassword prompts the user for the wallet password in the
// terminal. The password is read without echoing (hidden input).
// Caller must zero the returned slice after use.
func PromptForPassword() ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter wallet password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}

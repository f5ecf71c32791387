// One-off migration: rewrite legacy raw-key sub-wallet ciphertexts under the
// current tagged password scheme. The master wallet key is decrypted with the
// password, used to open each legacy envelope, then every migrated record is
// resealed with the password and written back in place.
// Usage: go run ./cmd/reencrypt_secrets -data ./data
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tradefin/escrow-wallet/internal/config"
	"github.com/tradefin/escrow-wallet/internal/secret"
	"github.com/tradefin/escrow-wallet/internal/storage"

	"github.com/lightningnetwork/lnd/clock"
)

func main() {
	dataDir := flag.String("data", "./data", "wallet data directory")
	dryRun := flag.Bool("dry-run", false, "report legacy records without rewriting them")
	flag.Parse()

	if err := run(*dataDir, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "reencrypt failed:", err)
		os.Exit(1)
	}
}

func run(dataDir string, dryRun bool) error {
	local, err := storage.NewLocal(dataDir)
	if err != nil {
		return err
	}

	master, err := local.MasterWallet()
	if err != nil {
		return err
	}

	password, err := config.PromptForPassword()
	if err != nil {
		return err
	}
	defer clear(password)

	// Idle timeout zero: the tool runs to completion and exits.
	secrets := secret.NewStore(secret.NewSession(clock.NewDefaultClock(), 0), nil)
	secrets.SetPassword(password)
	defer secrets.Clear()

	rawKey, err := secrets.Decrypt(master.EncryptedPrivateKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt master key: %w", err)
	}
	defer clear(rawKey)

	subs, err := local.SubWallets()
	if err != nil {
		return err
	}

	var migrated, skipped int
	for i := range subs {
		if !secret.IsLegacy(subs[i].EncryptedPrivateKey) {
			skipped++
			continue
		}
		if dryRun {
			fmt.Printf("legacy: %s\n", subs[i].Address)
			migrated++
			continue
		}
		blob, err := secret.ReencryptLegacy(subs[i].EncryptedPrivateKey, rawKey, password)
		if err != nil {
			return fmt.Errorf("failed to reencrypt %s: %w", subs[i].Address, err)
		}
		subs[i].EncryptedPrivateKey = blob
		migrated++
	}

	if !dryRun && migrated > 0 {
		if err := local.SaveSubWallets(subs); err != nil {
			return err
		}
	}

	fmt.Printf("done: %d migrated, %d already current\n", migrated, skipped)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/git"
	"github.com/illarion/lockpass/internal/security"
	"github.com/illarion/lockpass/internal/storage"
)

// Status shows the current state of the vault without a passphrase
func Status(e *Env) {
	path := e.Config.VaultPath

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No vault found at %s\n", path)
			fmt.Println("Run 'lockpass add' to create one")
			return
		}
		HandleError(err)
	}

	s, err := OpenVault(e)
	if err != nil {
		HandleError(err)
	}
	defer s.Close()

	fmt.Printf("Vault:      %s (%s)\n", path, formatSize(info.Size()))
	if file, err := security.CheckVaultPath(path); err == nil && file.Loose() {
		fmt.Printf("Mode:       %s %s, run 'chmod 600 %s'\n", warnMark, file.Mode.Perm(), file.Path)
	}

	initialized, err := s.DB.IsInitialized()
	if err != nil {
		HandleError(err)
	}
	if !initialized {
		fmt.Println("Contents:   empty (nothing sealed yet)")
		return
	}

	envInfo, err := s.Vault.Info()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Println("Contents:   empty (nothing sealed yet)")
	case err != nil:
		fmt.Printf("Contents:   %s unreadable: %s\n", warnMark, err)
	default:
		fmt.Printf("Contents:   sealed, %s\n", formatSize(int64(envInfo.Size)))
		if envInfo.Version == crypto.FormatV1 {
			fmt.Printf("Encryption: AES-256-GCM, PBKDF2-SHA256 (%d iterations), format v%d\n", crypto.Iterations, envInfo.Version)
		}
	}

	if created, err := s.DB.GetCreated(); err == nil {
		fmt.Printf("Created:    %s\n", created.Format(time.RFC3339))
	}
	if modified, err := s.DB.GetModified(); err == nil {
		fmt.Printf("Modified:   %s\n", modified.Format(time.RFC3339))
	}

	switch {
	case !e.Keyring.Enabled():
		fmt.Println("Keyring:    disabled")
	default:
		vaultID, _ := s.DB.GetVaultID()
		if e.Keyring.Has(vaultID) {
			fmt.Println("Keyring:    passphrase stored")
		} else {
			fmt.Println("Keyring:    not stored")
		}
	}

	abs, err := filepath.Abs(path)
	if err == nil {
		fmt.Print(git.CheckVault(abs).Format(filepath.Base(path)))
	}
}

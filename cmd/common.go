package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/illarion/lockpass/internal/logger"
	"github.com/illarion/lockpass/internal/prompt"
	"github.com/illarion/lockpass/internal/security"
	"github.com/illarion/lockpass/internal/storage"
	"github.com/illarion/lockpass/internal/vault"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	errLabel = color.New(color.FgRed).Sprint("Error:")
)

var errNoVault = errors.New("no vault found")

// PasswordSource indicates where a passphrase came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

// Env carries configuration shared by all commands
type Env struct {
	Config  *config.Config
	Log     *logger.Logger
	Keyring *keyring.Keyring
}

// NewEnv loads configuration from the environment
func NewEnv() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return &Env{
		Config:  cfg,
		Log:     logger.New(os.Stderr, cfg.LogLevel),
		Keyring: keyring.New(!cfg.NoKeyring),
	}, nil
}

// Session is an open vault file plus the store on top of it
type Session struct {
	DB    *storage.Storage
	Vault *vault.Store
}

// Close locks the store and releases the file lock
func (s *Session) Close() {
	s.Vault.Close()
	s.DB.Close()
}

// OpenVault opens the vault file, creating it on first use
func OpenVault(e *Env) (*Session, error) {
	file, err := security.CheckVaultPath(e.Config.VaultPath)
	if err != nil {
		return nil, err
	}
	if file.Loose() {
		fmt.Fprintf(os.Stderr, "%s %s is accessible to other users (mode %s)\n", warnMark, file.Path, file.Mode.Perm())
		e.Log.Warn().Str("path", file.Path).Stringer("mode", file.Mode.Perm()).Msg("loose vault permissions")
	}

	db, err := storage.Open(file.Path, e.Config.OpenTimeout)
	if err != nil {
		return nil, err
	}
	return &Session{
		DB:    db,
		Vault: vault.New(db, vault.WithLogger(e.Log)),
	}, nil
}

// OpenExistingVault is like OpenVault but fails with errNoVault instead of
// creating a file
func OpenExistingVault(e *Env) (*Session, error) {
	if _, err := os.Stat(e.Config.VaultPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errNoVault
		}
		return nil, err
	}
	return OpenVault(e)
}

// OpenAndUnlock opens the vault and unlocks it, resolving the passphrase
// from the environment, the keyring or a prompt. Only create allows a
// missing vault to be created; other commands fail with errNoVault when
// nothing has been sealed yet. Exits on failure.
func OpenAndUnlock(ctx context.Context, e *Env, create bool) *Session {
	s, err := openSession(ctx, e, create)
	if err != nil {
		HandleError(err)
	}
	return s
}

func openSession(ctx context.Context, e *Env, create bool) (*Session, error) {
	open := OpenExistingVault
	if create {
		open = OpenVault
	}
	s, err := open(e)
	if err != nil {
		return nil, err
	}

	if !create {
		exists, err := s.Vault.HasEnvelope()
		if err == nil && !exists {
			err = errNoVault
		}
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	if err := Unlock(ctx, e, s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Unlock unlocks an opened session. A new vault asks for the passphrase
// twice. A keyring passphrase that no longer opens the vault is dropped
// from the keyring and the user is prompted instead.
func Unlock(ctx context.Context, e *Env, s *Session) error {
	exists, err := s.Vault.HasEnvelope()
	if err != nil {
		return err
	}

	if !exists {
		password, err := GetPasswordForNew(e)
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(password)

		_, err = s.Vault.Unlock(ctx, password)
		return err
	}

	vaultID, _ := s.DB.GetVaultID()
	password, source, err := GetPassword(e, "Enter passphrase: ", vaultID)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	_, err = s.Vault.Unlock(ctx, password)
	if err == nil || source != SourceKeyring || !errors.Is(err, vault.ErrAuthentication) {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s stored keyring passphrase did not unlock the vault, removing it\n", warnMark)
	if err := e.Keyring.Delete(vaultID); err != nil {
		e.Log.Warn().Err(err).Msg("failed to remove stale keyring entry")
	}

	retry, err := prompt.ReadPassword("Enter passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(retry)

	_, err = s.Vault.Unlock(ctx, retry)
	return err
}

// GetPassword retrieves the passphrase from the environment, the keyring
// or a prompt, in that order. The caller must clear the returned slice.
func GetPassword(e *Env, message, vaultID string) ([]byte, PasswordSource, error) {
	if password := e.Config.PasswordBytes(); password != nil {
		return password, SourceEnv, nil
	}

	if vaultID != "" && e.Keyring.Enabled() {
		password, err := e.Keyring.Get(vaultID)
		if err == nil {
			return password, SourceKeyring, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			e.Log.Debug().Err(err).Msg("keyring unavailable")
		}
	}

	password, err := prompt.ReadPassword(message)
	if err != nil {
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// GetPasswordForNew retrieves the passphrase for a vault that does not
// exist yet, asking twice when prompting
func GetPasswordForNew(e *Env) ([]byte, error) {
	if password := e.Config.PasswordBytes(); password != nil {
		return password, nil
	}

	fmt.Println("No vault yet, choose a passphrase. There is no way to recover it.")
	password, err := prompt.ReadPasswordConfirm("New passphrase: ")
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}
	return password, nil
}

// HandleError handles common errors consistently
func HandleError(err error) {
	switch {
	case errors.Is(err, vault.ErrAuthentication):
		fmt.Fprintf(os.Stderr, "%s incorrect passphrase or corrupted vault\n", errLabel)
	case errors.Is(err, vault.ErrCorrupted):
		fmt.Fprintf(os.Stderr, "%s %s\n", errLabel, err)
		fmt.Fprintf(os.Stderr, "The vault cannot be read. Restore it from a backup.\n")
	case errors.Is(err, vault.ErrRecordNotFound):
		fmt.Fprintf(os.Stderr, "%s %s\n", errLabel, err)
		fmt.Fprintf(os.Stderr, "Use 'lockpass ls' to see record ids\n")
	case errors.Is(err, errNoVault):
		fmt.Fprintf(os.Stderr, "%s no vault found\n", errLabel)
		fmt.Fprintf(os.Stderr, "Run 'lockpass add' to create one\n")
	case errors.Is(err, prompt.ErrMismatch):
		fmt.Fprintf(os.Stderr, "%s passphrases do not match\n", errLabel)
	default:
		fmt.Fprintf(os.Stderr, "%s %s\n", errLabel, err)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/illarion/lockpass/internal/prompt"
)

// KeyringSave verifies the passphrase and stores it in the OS keyring
func KeyringSave(ctx context.Context, e *Env) {
	if !e.Keyring.Enabled() {
		HandleError(keyring.ErrDisabled)
	}

	s, err := OpenExistingVault(e)
	if err != nil {
		HandleError(err)
	}
	defer s.Close()

	password, err := prompt.ReadPassword("Enter passphrase: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if err := saveVerified(ctx, e, s, password); err != nil {
		HandleError(err)
	}

	fmt.Printf("%s passphrase saved to keyring\n", okMark)
}

// saveVerified stores password in the keyring once it has unlocked the
// sealed vault. A vault with nothing sealed cannot verify anything.
func saveVerified(ctx context.Context, e *Env, s *Session, password []byte) error {
	exists, err := s.Vault.HasEnvelope()
	if err != nil {
		return err
	}
	if !exists {
		return errNoVault
	}

	if _, err := s.Vault.Unlock(ctx, password); err != nil {
		return err
	}
	if err := s.Vault.Lock(); err != nil {
		return err
	}

	vaultID, err := s.DB.GetOrCreateVaultID()
	if err != nil {
		return err
	}

	if err := e.Keyring.Save(vaultID, password); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// KeyringDelete removes the passphrase from the OS keyring
func KeyringDelete(e *Env) {
	s, err := OpenExistingVault(e)
	if err != nil {
		HandleError(err)
	}
	defer s.Close()

	vaultID, err := s.DB.GetVaultID()
	if err != nil {
		fmt.Println("No passphrase stored in keyring")
		return
	}

	if err := e.Keyring.Delete(vaultID); err != nil {
		fmt.Println("No passphrase stored in keyring")
		return
	}

	fmt.Println("Passphrase removed from keyring")
}

// KeyringStatus checks if a passphrase is stored in the keyring
func KeyringStatus(e *Env) {
	if !e.Keyring.Enabled() {
		fmt.Println("Passphrase: keyring disabled")
		return
	}

	s, err := OpenExistingVault(e)
	if err != nil {
		HandleError(err)
	}
	defer s.Close()

	vaultID, err := s.DB.GetVaultID()
	if err != nil {
		fmt.Println("Passphrase: not stored")
		return
	}

	if e.Keyring.Has(vaultID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
}

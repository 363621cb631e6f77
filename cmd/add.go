package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/prompt"
)

// Add stores a new credential. Fields not given as flags are prompted for.
func Add(ctx context.Context, e *Env, label, username string) {
	s := OpenAndUnlock(ctx, e, true)
	defer s.Close()

	var err error
	if label == "" {
		if label, err = prompt.ReadLine("Label (e.g., site or app): "); err != nil {
			HandleError(err)
		}
		if label == "" {
			fmt.Println("Nothing added")
			return
		}
	}
	if username == "" {
		if username, err = prompt.ReadLine("Username / Email: "); err != nil {
			HandleError(err)
		}
	}

	password, err := prompt.ReadPassword("Password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	rec, err := s.Vault.Add(ctx, label, username, string(password))
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("%s added %s (%s)\n", okMark, rec.Label, rec.ID)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/prompt"
)

// EditOptions lists the fields to change; nil pointers keep the current value
type EditOptions struct {
	Label       *string
	Username    *string
	NewPassword bool
}

// Edit updates a record in place
func Edit(ctx context.Context, e *Env, query string, opts EditOptions) {
	if opts.Label == nil && opts.Username == nil && !opts.NewPassword {
		fmt.Println("Nothing to change. Use -label, -user or -password.")
		return
	}

	s := OpenAndUnlock(ctx, e, false)
	defer s.Close()

	rec, err := s.Vault.Find(query)
	if err != nil {
		HandleError(err)
	}

	label, username, password := rec.Label, rec.Username, rec.Password
	if opts.Label != nil {
		label = *opts.Label
	}
	if opts.Username != nil {
		username = *opts.Username
	}
	if opts.NewPassword {
		p, err := prompt.ReadPassword("New password: ")
		if err != nil {
			HandleError(err)
		}
		password = string(p)
		crypto.ClearBytes(p)
	}

	updated, err := s.Vault.Update(ctx, rec.ID, label, username, password)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("%s updated %s (%s)\n", okMark, updated.Label, updated.ID)
}

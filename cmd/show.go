package cmd

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// Show prints a single record. The password is masked unless reveal is set.
func Show(ctx context.Context, e *Env, query string, reveal bool) {
	s := OpenAndUnlock(ctx, e, false)
	defer s.Close()

	rec, err := s.Vault.Find(query)
	if err != nil {
		HandleError(err)
	}

	password := "********"
	if reveal {
		password = rec.Password
	}

	fmt.Printf("ID:       %s\n", rec.ID)
	fmt.Printf("Label:    %s\n", rec.Label)
	fmt.Printf("Username: %s\n", rec.Username)
	fmt.Printf("Password: %s\n", password)
}

// Copy puts the password of a record on the system clipboard
func Copy(ctx context.Context, e *Env, query string) {
	s := OpenAndUnlock(ctx, e, false)
	defer s.Close()

	rec, err := s.Vault.Find(query)
	if err != nil {
		HandleError(err)
	}

	if err := clipboard.WriteAll(rec.Password); err != nil {
		HandleError(fmt.Errorf("copy to clipboard: %w", err))
	}

	fmt.Printf("%s password for %s copied to clipboard\n", okMark, rec.Label)
}

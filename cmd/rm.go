package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/lockpass/internal/prompt"
	"github.com/illarion/lockpass/internal/vault"
)

// Remove removes records from the vault by id or label. Without force each
// record is confirmed first.
func Remove(ctx context.Context, e *Env, queries []string, force bool) {
	if len(queries) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one record\n")
		fmt.Fprintf(os.Stderr, "Usage: lockpass rm <id|label> [id|label...]\n")
		os.Exit(1)
	}

	s := OpenAndUnlock(ctx, e, false)
	defer s.Close()

	removed := 0
	for _, q := range queries {
		rec, err := s.Vault.Find(q)
		if errors.Is(err, vault.ErrRecordNotFound) {
			fmt.Printf("%s no record %s, skipping\n", warnMark, q)
			continue
		}
		if err != nil {
			HandleError(err)
		}

		if !force && !prompt.Confirm(fmt.Sprintf("Remove %s (%s)?", rec.Label, rec.ID)) {
			fmt.Printf("kept: %s\n", rec.Label)
			continue
		}

		if _, err := s.Vault.Remove(ctx, rec.ID); err != nil {
			HandleError(err)
		}
		fmt.Printf("removed: %s (%s)\n", rec.Label, rec.ID)
		removed++
	}

	if removed == 0 {
		return
	}

	// Compact database to reclaim space
	if err := s.DB.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// List shows every record without passwords
func List(ctx context.Context, e *Env) {
	s := OpenAndUnlock(ctx, e, false)
	defer s.Close()

	records, err := s.Vault.Records()
	if err != nil {
		HandleError(err)
	}

	if len(records) == 0 {
		fmt.Println("No records yet. Use 'lockpass add' to create one.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tUSERNAME")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Label, r.Username)
	}
	w.Flush()
}

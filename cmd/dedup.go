package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-scout/internal/dedup"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "List likely-duplicate developer pairs",
	Long: "Scans developer names for near-matches by edit distance. This only " +
		"reports candidates; use 'merge' to fold a confirmed duplicate into its survivor.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		candidates, err := dedup.FindCandidates(ctx, st)
		if err != nil {
			return eris.Wrap(err, "dedup")
		}

		if len(candidates) == 0 {
			fmt.Fprintln(os.Stderr, "No duplicate candidates found.")
			return nil
		}

		formatCandidates(os.Stdout, candidates)
		return nil
	},
}

func formatCandidates(out io.Writer, candidates []dedup.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CONFIDENCE\tDIST\tDEVELOPER A\tPROJECTS\tDEVELOPER B\tPROJECTS")
	_, _ = fmt.Fprintln(w, "----------\t----\t-----------\t--------\t-----------\t--------")

	for _, c := range candidates {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s (%s)\t%d\t%s (%s)\t%d\n",
			c.Confidence,
			c.Distance,
			c.A.Name, truncateID(c.A.ID), c.A.ProjectCount,
			c.B.Name, truncateID(c.B.ID), c.B.ProjectCount,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(dedupCmd)
}

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-scout/internal/model"
)

var developersCmd = &cobra.Command{
	Use:   "developers",
	Short: "List developers with lead scores",
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

		devs, err := st.ListDeveloperSummaries(ctx)
		if err != nil {
			return eris.Wrap(err, "developers")
		}

		if len(devs) == 0 {
			fmt.Fprintln(os.Stderr, "No developers found.")
			return nil
		}

		formatDevelopers(os.Stdout, devs)
		return nil
	},
}

func formatDevelopers(out io.Writer, devs []model.DeveloperSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tSCORE\tPROJECTS\tOUTREACH")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-----\t--------\t--------")

	for _, d := range devs {
		entityType := ""
		if d.EntityType != nil {
			entityType = *d.EntityType
		}
		score := "-"
		if d.LeadScore != nil {
			score = fmt.Sprintf("%d", *d.LeadScore)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			truncateID(d.ID), d.Name, entityType, score, d.ProjectCount, d.OutreachCount)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(developersCmd)
}

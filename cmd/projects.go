package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/store"
)

var (
	projectsStage     string
	projectsSource    string
	projectsDeveloper string
	projectsLimit     int
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List tracked permit projects",
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

		projects, err := st.ListProjects(ctx, store.ProjectFilter{
			Stage:       model.Stage(projectsStage),
			Source:      projectsSource,
			DeveloperID: projectsDeveloper,
			Limit:       projectsLimit,
		})
		if err != nil {
			return eris.Wrap(err, "projects")
		}

		if len(projects) == 0 {
			fmt.Fprintln(os.Stderr, "No projects found.")
			return nil
		}

		formatProjects(os.Stdout, projects)
		return nil
	},
}

func formatProjects(out io.Writer, projects []model.Project) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PERMIT\tSTAGE\tVALUATION\tOWNER\tADDRESS\tSOURCE")
	_, _ = fmt.Fprintln(w, "------\t-----\t---------\t-----\t-------\t------")

	for _, p := range projects {
		valuation := ""
		if p.Valuation != nil {
			valuation = fmt.Sprintf("%.0f", *p.Valuation)
		}
		owner := ""
		if p.OwnerName != nil {
			owner = *p.OwnerName
		}
		addr := p.Address
		if len(addr) > 40 {
			addr = addr[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.PermitNumber, p.Stage, valuation, owner, addr, p.Source)
	}
	_ = w.Flush()
}

func init() {
	projectsCmd.Flags().StringVar(&projectsStage, "stage", "", "filter by pipeline stage (entitlement, permitted, construction, completed)")
	projectsCmd.Flags().StringVar(&projectsSource, "source", "", "filter by source dataset")
	projectsCmd.Flags().StringVar(&projectsDeveloper, "developer", "", "filter by developer id")
	projectsCmd.Flags().IntVar(&projectsLimit, "limit", 50, "max number of projects to display")
	rootCmd.AddCommand(projectsCmd)
}

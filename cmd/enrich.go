package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-scout/internal/enrich"
)

var (
	enrichAssessor bool
	enrichRegistry bool
	enrichProject  string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich projects and developers from public records",
	Long: "Runs the slow enrichment passes: --assessor fills parcel data for " +
		"projects with an APN, --registry fills business-registry contact data " +
		"for company developers. Both skip records already enriched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !enrichAssessor && !enrichRegistry {
			return eris.New("nothing to do: pass --assessor and/or --registry")
		}
		if enrichProject != "" && !enrichAssessor {
			return eris.New("--project only applies to --assessor")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		f := newFetcher()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if enrichAssessor {
			a := enrich.NewAssessor(st, f, cfg.Assessor)

			if enrichProject != "" {
				ok, err := a.EnrichProject(ctx, enrichProject)
				if err != nil {
					return eris.Wrap(err, "enrich assessor")
				}
				if !ok {
					fmt.Fprintln(os.Stderr, "Project has no APN or no matching parcel.")
					return nil
				}
				fmt.Printf("Enriched project %s\n", truncateID(enrichProject))
			} else {
				res, err := a.Run(ctx)
				if err != nil {
					return eris.Wrap(err, "enrich assessor")
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
		}

		if enrichRegistry {
			res, err := enrich.NewRegistry(st, f, cfg.Registry).Run(ctx)
			if err != nil {
				return eris.Wrap(err, "enrich registry")
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichAssessor, "assessor", false, "run county assessor parcel enrichment")
	enrichCmd.Flags().BoolVar(&enrichRegistry, "registry", false, "run state business registry enrichment")
	enrichCmd.Flags().StringVar(&enrichProject, "project", "", "enrich a single project by id (assessor only)")
	rootCmd.AddCommand(enrichCmd)
}

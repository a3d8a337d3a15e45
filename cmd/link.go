package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-scout/internal/linker"
)

var linkCreate bool

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link projects to developers by owner name",
	Long: "Attaches unlinked projects to existing developers whose normalized name " +
		"matches the permit's owner exactly. With --create, owner names that match " +
		"no developer mint a new developer record.",
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

		res, err := linker.AutoLink(ctx, st)
		if err != nil {
			return eris.Wrap(err, "link")
		}

		if linkCreate {
			created, err := linker.CreateDevelopers(ctx, st, cfg.Ingest.MinOwnerNameLen)
			if err != nil {
				return eris.Wrap(err, "link create")
			}
			res.Linked += created.Linked
			res.DevelopersCreated = created.DevelopersCreated
			res.Skipped = created.Skipped
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	linkCmd.Flags().BoolVar(&linkCreate, "create", false, "create developers for owner names with no match")
	rootCmd.AddCommand(linkCmd)
}

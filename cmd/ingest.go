package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	ingestSource string
	ingestFrom   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull permits from the open-data sources",
	Long: "Fetches permit records, archives the raw payloads, and reconciles them " +
		"into projects. Without --source this runs every source and then the full " +
		"post-ingest pipeline: ownership linking, developer creation, and lead scoring.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if ingestFrom != "" {
			if _, err := time.Parse("2006-01-02", ingestFrom); err != nil {
				return eris.Wrapf(err, "invalid --from date %q (want YYYY-MM-DD)", ingestFrom)
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runner := newRunner(st)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if ingestSource != "" {
			res, err := runner.Ingest(ctx, ingestSource, ingestFrom)
			if err != nil {
				return eris.Wrap(err, "ingest")
			}
			return enc.Encode(res)
		}

		full, err := runner.IngestAll(ctx, ingestFrom)
		if encErr := enc.Encode(full); encErr != nil {
			return encErr
		}
		return err
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "run one source only (permits, legacy, submitted)")
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "only pull records with status activity on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(ingestCmd)
}

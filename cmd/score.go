package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-scout/internal/scorer"
)

var scoreDeveloper string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute lead scores for all developers",
	Long: "Scores every developer with at least one linked project on pipeline " +
		"value, permit timing, project quality, and reachability, and stores the " +
		"score with its component breakdown.",
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

		updated, err := scorer.RecomputeAll(ctx, st, cfg.Ingest.NewConstructionType)
		if err != nil {
			return eris.Wrap(err, "score")
		}
		fmt.Printf("Scored %d developers\n", updated)

		if scoreDeveloper == "" {
			return nil
		}

		dev, err := st.GetDeveloper(ctx, scoreDeveloper)
		if err != nil {
			return eris.Wrap(err, "score show")
		}
		if dev.LeadScore == nil || dev.LeadScoreData == nil {
			fmt.Fprintf(os.Stderr, "Developer %s has no linked projects and no score.\n", truncateID(dev.ID))
			return nil
		}

		var breakdown json.RawMessage = []byte(*dev.LeadScoreData)
		out := struct {
			Name      string          `json:"name"`
			LeadScore int             `json:"lead_score"`
			Breakdown json.RawMessage `json:"breakdown"`
		}{dev.Name, *dev.LeadScore, breakdown}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreDeveloper, "developer", "", "print the stored breakdown for one developer after scoring")
	rootCmd.AddCommand(scoreCmd)
}

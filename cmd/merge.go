package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"go.uber.org/zap"
)

var (
	mergePrimary   string
	mergeSecondary string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a duplicate developer into its survivor",
	Long: "Folds the secondary developer into the primary: projects and outreach " +
		"re-point, tags union, empty contact fields fill from the secondary, and " +
		"the secondary record is deleted. The whole merge is one transaction.",
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

		if err := st.MergeDevelopers(ctx, mergePrimary, mergeSecondary); err != nil {
			return eris.Wrap(err, "merge")
		}

		zap.L().Info("developers merged",
			zap.String("primary", mergePrimary),
			zap.String("secondary", mergeSecondary),
		)
		fmt.Printf("Merged %s into %s\n", mergeSecondary, mergePrimary)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergePrimary, "primary", "", "developer that survives the merge (required)")
	mergeCmd.Flags().StringVar(&mergeSecondary, "secondary", "", "developer absorbed and deleted (required)")
	_ = mergeCmd.MarkFlagRequired("primary")
	_ = mergeCmd.MarkFlagRequired("secondary")
	rootCmd.AddCommand(mergeCmd)
}

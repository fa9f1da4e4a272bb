package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/recipeatlas/recipeatlas/internal/core/api"
	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/rules"
)

var requalifyCmd = &cobra.Command{
	Use:   "requalify",
	Short: "Recompute the qualification of every collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openMigrated(cfg)
		if err != nil {
			return err
		}
		store, err := db.NewStore(database)
		if err != nil {
			database.Close()
			return err
		}
		defer store.Close()

		service, err := api.NewCollectionService(store, api.NewRuleService(rules.NewEngine(cfg.Rules.Limits()), cfg.Qualification.Thresholds()))
		if err != nil {
			return err
		}

		results, requalifyErr := service.RequalifyAll(context.Background())
		if len(results) == 0 && requalifyErr == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No collections to requalify.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "COLLECTION\tSLUG\tPUBLISHED\tPENDING\tTARGET\tMIN\tPROGRESS\tSTATUS")
		for _, c := range results {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d%%\t%s\n",
				c.Name, c.Slug, c.PublishedCount, c.PendingCount, c.TargetCount, c.MinRequired, c.Progress, c.QualifiedStatus)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return requalifyErr
	},
}

func init() {
	rootCmd.AddCommand(requalifyCmd)
}

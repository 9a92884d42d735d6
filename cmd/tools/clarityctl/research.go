package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clarity-workers/internal/catalog"
	"clarity-workers/internal/engine"
)

func researchOrderCmd(opts *rootOptions) *cobra.Command {
	var area string
	cmd := &cobra.Command{
		Use:   "research-order",
		Short: "Print research questions in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.logger()
			lookup, err := catalog.Load(cmd.Context(), catalog.NewFileSource(opts.catalogDir), log)
			if err != nil {
				return err
			}
			schedule := engine.OrderResearch(lookup.ResearchQuestions(area), log)

			out := cmd.OutOrStdout()
			for i, rq := range schedule.Ordered {
				deps := ""
				if len(rq.DependsOn) > 0 {
					deps = " (after " + strings.Join(rq.DependsOn, ", ") + ")"
				}
				fmt.Fprintf(out, "%d. [%s] %s %s%s\n", i+1, rq.Area, rq.ID, rq.Label, deps)
			}
			if !schedule.Complete() {
				fmt.Fprintf(out, "unscheduled: %s\n", strings.Join(schedule.Unscheduled, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "Research area (all areas when empty)")
	return cmd
}

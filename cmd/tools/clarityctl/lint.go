package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clarity-workers/internal/catalog"
)

func lintCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check catalogs for dangling references and cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			problems := catalog.Lint(cmd.Context(), catalog.NewFileSource(opts.catalogDir))
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p.String())
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d catalog problem(s) in %s", len(problems), opts.catalogDir)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalogs in %s are consistent\n", opts.catalogDir)
			return nil
		},
	}
}

package main

import (
	"github.com/spf13/cobra"

	"clarity-workers/internal/common/logger"
)

type rootOptions struct {
	catalogDir string
	verbose    bool
}

func (o *rootOptions) logger() logger.Logger {
	if o.verbose {
		return logger.NewStructured("debug", "console", "stderr")
	}
	return logger.NewStructured("warn", "console", "stderr")
}

func newRoot() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "clarityctl",
		Short:         "Catalog and document tooling for the clarity pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.catalogDir, "catalog", "configs/catalog", "Catalog directory")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to stderr")

	root.AddCommand(
		lintCmd(opts),
		researchOrderCmd(opts),
		renderCmd(opts),
		workersCmd(),
		registryCmd(),
	)
	return root
}

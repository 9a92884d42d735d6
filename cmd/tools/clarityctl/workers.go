package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"clarity-workers/pkg/registry"

	analyzesession "clarity-workers/internal/workers/pipeline/analyze-session"
	exportdocument "clarity-workers/internal/workers/pipeline/export-document"
	generatedocument "clarity-workers/internal/workers/pipeline/generate-document"
	validatesession "clarity-workers/internal/workers/pipeline/validate-session"
)

type builtinWorker struct {
	taskType    string
	activityID  string
	displayName string
	inputSchema func() map[string]interface{}
}

// builtinWorkers are the job types the worker manager can serve.
var builtinWorkers = []builtinWorker{
	{validatesession.TaskType, "clarity.session.validate", "Validate Session", validatesession.InputSchema},
	{analyzesession.TaskType, "clarity.session.analyze", "Analyze Session", analyzesession.InputSchema},
	{generatedocument.TaskType, "clarity.document.generate", "Generate Document", generatedocument.InputSchema},
	{exportdocument.TaskType, "clarity.document.export", "Export Document", exportdocument.InputSchema},
}

func builtinTaskTypes() []string {
	out := make([]string, 0, len(builtinWorkers))
	for _, w := range builtinWorkers {
		out = append(out, w.taskType)
	}
	return out
}

func workersCmd() *cobra.Command {
	var registryPath string
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "Validate the activity registry against the built-in workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			missing := 0
			for _, taskType := range builtinTaskTypes() {
				a, ok := reg.Find(taskType)
				if !ok {
					fmt.Fprintf(out, "%-20s MISSING from registry\n", taskType)
					missing++
					continue
				}
				fmt.Fprintf(out, "%-20s %-28s %s\n", taskType, a.ID, a.ImplementationStatus)
			}

			known := map[string]bool{}
			for _, t := range builtinTaskTypes() {
				known[t] = true
			}
			var orphans []string
			for _, t := range reg.TaskTypes() {
				if !known[t] {
					orphans = append(orphans, t)
				}
			}
			sort.Strings(orphans)
			for _, t := range orphans {
				fmt.Fprintf(out, "%-20s registered but not implemented\n", t)
			}

			if missing > 0 {
				return fmt.Errorf("%d worker(s) missing from %s", missing, registryPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&registryPath, "registry", "configs/activity-registry.json", "Path to registry file")
	return cmd
}

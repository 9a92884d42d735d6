package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clarity-workers/pkg/registry"
)

func registryCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Maintain the activity registry",
	}
	cmd.PersistentFlags().StringVar(&path, "registry", "configs/activity-registry.json", "Path to registry file")
	cmd.AddCommand(registrySyncCmd(&path), registrySetCmd(&path))
	return cmd
}

// registrySyncCmd adds an entry for every built-in worker the registry does
// not know yet. Existing entries are left alone.
func registrySyncCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Register built-in workers missing from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if errors.Is(err, os.ErrNotExist) {
				reg = &registry.ActivityRegistry{Version: "1.0.0"}
			} else if err != nil {
				return err
			}

			added := 0
			for _, w := range builtinWorkers {
				if _, ok := reg.Find(w.taskType); ok {
					continue
				}
				reg.Upsert(registry.Activity{
					ID:                   w.activityID,
					DisplayName:          w.displayName,
					Category:             "pipeline",
					Version:              "1.0.0",
					TaskType:             w.taskType,
					ImplementationStatus: registry.StatusCompleted,
					InputSchema:          w.inputSchema(),
					OutputSchema:         map[string]interface{}{},
					ErrorCodes:           []string{},
					Timeout:              "30s",
					Workflows:            []string{},
					Tags:                 []string{},
				})
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", w.activityID, w.taskType)
				added++
			}
			if added == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "registry already lists every built-in worker")
				return nil
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			return reg.Save(*path, time.Now().UTC())
		},
	}
}

func registrySetCmd(path *string) *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update one field of an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return err
			}
			if err := reg.SetField(id, field, value); err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			if err := reg.Save(*path, time.Now().UTC()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, timeout, retries, ...)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *cliContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the recorded status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			t, err := store.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("no task recorded for %s", id)
			}
			out := cmd.OutOrStdout()

			if asJSON {
				encoded, err := json.MarshalIndent(t, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(encoded))
				return nil
			}

			colorize := isTerminal(out)
			fmt.Fprintln(out, renderStatusLine("Task", statusInfo, t.ID.String(), colorize))
			fmt.Fprintln(out, renderStatusLine("Type", statusInfo, string(t.Type), colorize))
			fmt.Fprintln(out, renderStatusLine("Lane", statusInfo, laneLabel(t.Priority), colorize))
			fmt.Fprintln(out, renderStatusLine("State", taskStateKind(t), taskStateLabel(t), colorize))
			if t.Error != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, t.Error, colorize))
			}
			if t.FollowupTaskID != nil {
				fmt.Fprintln(out, renderStatusLine("Follow-up", statusInfo, t.FollowupTaskID.String(), colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the full task record as JSON")
	return cmd
}

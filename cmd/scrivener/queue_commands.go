package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *cliContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depth per lane and in-flight work",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			priority, background, err := store.LaneCounts(cmd.Context())
			if err != nil {
				return err
			}
			inFlight, err := store.InFlight(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"priority", strconv.Itoa(priority)},
				{"background", strconv.Itoa(background)},
				{"in-flight", strconv.Itoa(inFlight)},
			}
			out := cmd.OutOrStdout()
			tbl := renderTable([]string{"Lane", "Count"}, rows,
				[]columnAlignment{alignLeft, alignRight}, isTerminal(out))
			fmt.Fprintln(out, tbl)
			return nil
		},
	}
}

func newQueueListCommand(ctx *cliContext) *cobra.Command {
	var listLimit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			tasks, err := store.ListTasks(cmd.Context(), listLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks recorded")
				return nil
			}
			rows := buildTaskRows(tasks)
			tbl := renderTable(
				[]string{"ID", "Type", "Lane", "State", "Updated", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				isTerminal(out),
			)
			fmt.Fprintln(out, tbl)
			return nil
		},
	}

	cmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of tasks to show")
	return cmd
}

func newQueueClearCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all pending tasks from both lanes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			priority, background, err := store.LaneCounts(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d pending tasks\n", priority+background)
			return nil
		},
	}
}

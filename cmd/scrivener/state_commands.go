package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scrivener/internal/queue"
)

func newStateCommand(ctx *cliContext) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "daemon-state",
		Short: "Inspect and adjust daemon admission control",
	}

	stateCmd.AddCommand(newStateShowCommand(ctx))
	stateCmd.AddCommand(newStateSetCommand(ctx))

	return stateCmd
}

func newStateShowCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the persisted daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			state, err := store.LoadDaemonState(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if state == nil {
				defaults := queue.DefaultDaemonState(cfg.Daemon.MaxConcurrentTasks)
				state = &defaults
				fmt.Fprintln(out, "No state persisted yet; showing startup defaults")
			}
			rows := [][]string{
				{"enabled", strconv.FormatBool(*state.Enabled)},
				{"max_concurrent_tasks", strconv.Itoa(*state.MaxConcurrentTasks)},
				{"insert_followup_after_ingest", strconv.FormatBool(*state.InsertFollowupAfterIngest)},
				{"insert_followup_at_front", strconv.FormatBool(*state.InsertFollowupAtFront)},
			}
			tbl := renderTable([]string{"Setting", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}, isTerminal(out))
			fmt.Fprintln(out, tbl)
			return nil
		},
	}
}

func newStateSetCommand(ctx *cliContext) *cobra.Command {
	var (
		enabled        bool
		maxConcurrent  int
		insertFollowup bool
		followupFront  bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update daemon admission settings",
		Long: "Updates the persisted daemon state. Only flags that are explicitly " +
			"set change; everything else keeps its current value. A daemon that is " +
			"already running picks the new state up on its next admission check.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch queue.DaemonState
			if cmd.Flags().Changed("enabled") {
				patch.Enabled = &enabled
			}
			if cmd.Flags().Changed("max-concurrent") {
				patch.MaxConcurrentTasks = &maxConcurrent
			}
			if cmd.Flags().Changed("insert-followup") {
				patch.InsertFollowupAfterIngest = &insertFollowup
			}
			if cmd.Flags().Changed("followup-at-front") {
				patch.InsertFollowupAtFront = &followupFront
			}
			if patch == (queue.DaemonState{}) {
				return fmt.Errorf("no settings given; see --help for available flags")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			current, err := store.LoadDaemonState(cmd.Context())
			if err != nil {
				return err
			}
			if current == nil {
				defaults := queue.DefaultDaemonState(cfg.Daemon.MaxConcurrentTasks)
				current = &defaults
			}
			merged := current.Merge(patch)
			if err := merged.Validate(); err != nil {
				return err
			}
			if err := store.SaveDaemonState(cmd.Context(), merged); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon state updated")
			return nil
		},
	}

	cmd.Flags().BoolVar(&enabled, "enabled", true, "Allow the daemon to start new tasks")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum tasks running at once")
	cmd.Flags().BoolVar(&insertFollowup, "insert-followup", true, "Queue a processing task after each ingestion")
	cmd.Flags().BoolVar(&followupFront, "followup-at-front", false, "Place follow-up tasks at the front of their lane")
	return cmd
}

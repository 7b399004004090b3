package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/sessionaccess"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage pipeline sessions",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsRemoveCommand(ctx))
	sessionsCmd.AddCommand(newSessionsClearCommand(ctx))
	sessionsCmd.AddCommand(newSessionsResetStuckCommand(ctx))
	sessionsCmd.AddCommand(newSessionsHealthCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access sessionaccess.Access) error {
				sessions, err := access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if sessions == nil {
						sessions = []api.Session{}
					}
					return writeJSON(cmd, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Approvals", "Created"},
					buildSessionListRows(sessions),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by session status (repeatable)")
	return cmd
}

func newSessionsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <sessionID...>",
		Short: "Delete sessions and their scene sets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSessionIDs(args)
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				type removal struct {
					ID      int64  `json:"id"`
					Outcome string `json:"outcome"`
				}
				results := make([]removal, 0, len(ids))
				for _, id := range ids {
					removed, err := access.Remove(cmd.Context(), []int64{id})
					if err != nil {
						return err
					}
					outcome := "not_found"
					if removed > 0 {
						outcome = "removed"
					}
					results = append(results, removal{ID: id, Outcome: outcome})
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"sessions": results})
				}
				out := cmd.OutOrStdout()
				for _, res := range results {
					if res.Outcome == "removed" {
						fmt.Fprintf(out, "Session %d removed\n", res.ID)
					} else {
						fmt.Fprintf(out, "Session %d not found\n", res.ID)
					}
				}
				return nil
			})
		},
	}
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	var clearExported bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove sessions in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access sessionaccess.Access) error {
				var removed int64
				var err error
				if clearExported {
					removed, err = access.ClearExported(cmd.Context())
				} else {
					removed, err = access.ClearAll(cmd.Context())
				}
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int64{"removed": removed})
				}
				if clearExported {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d exported sessions\n", removed)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d sessions\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearExported, "exported", false, "Remove only exported sessions")
	return cmd
}

func newSessionsResetStuckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Roll abandoned in-flight sessions back to their checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access sessionaccess.Access) error {
				updated, err := access.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int64{"updated": updated})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d sessions\n", updated)
				return nil
			})
		},
	}
}

func newSessionsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show session counts by pipeline phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access sessionaccess.Access) error {
				health, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int{
						"total":      health.Total,
						"draft":      health.Draft,
						"processing": health.Processing,
						"review":     health.Review,
						"exported":   health.Exported,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nDraft: %d\nProcessing: %d\nReview: %d\nExported: %d\n",
					health.Total,
					health.Draft,
					health.Processing,
					health.Review,
					health.Exported,
				)
				return nil
			})
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/sessionaccess"
)

// sceneCellWidth caps speech and markup columns so long narration wraps
// instead of blowing out the terminal.
const sceneCellWidth = 48

func newScenesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes <sessionID>",
		Short: "Render the scene set currently under review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				scenes, err := access.Scenes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, scenes)
				}
				out := cmd.OutOrStdout()
				if scenes.SceneSet == nil {
					fmt.Fprintf(out, "Session %d has no reviewable scenes yet\n", id)
					return nil
				}
				set := scenes.SceneSet
				fmt.Fprintf(out, "Scene set %s v%d (%d scenes)\n", set.Stage, set.Version, len(set.Scenes))
				table := renderTableWidth(
					[]string{"Index", "Comment", "Speech", "Markup"},
					buildSceneRows(set.Scenes),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
					sceneCellWidth,
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

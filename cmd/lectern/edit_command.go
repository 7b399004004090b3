package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/scene"
	"lectern/internal/sessionaccess"
)

func newEditCommand(ctx *commandContext) *cobra.Command {
	var sceneIndex int
	var comment, speech, markup string
	var editFile string

	cmd := &cobra.Command{
		Use:   "edit <sessionID>",
		Short: "Apply scene edits at the current checkpoint",
		Long: "Edit replaces fields of individual scenes while a session is parked at a\n" +
			"review checkpoint. Pass --scene with one or more field flags for a single\n" +
			"edit, or --file with a JSON or YAML list for batch edits.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}

			edits, err := collectEdits(cmd, sceneIndex, comment, speech, markup, editFile)
			if err != nil {
				return err
			}

			return ctx.withAccess(func(access sessionaccess.Access) error {
				set, err := access.Edit(cmd.Context(), id, edits)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, set)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene set updated to %s v%d (%d scenes)\n",
					set.Stage, set.Version, len(set.Scenes))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&sceneIndex, "scene", 0, "Index of the scene to edit")
	cmd.Flags().StringVar(&comment, "comment", "", "Replacement comment for the scene")
	cmd.Flags().StringVar(&speech, "speech", "", "Replacement speech for the scene")
	cmd.Flags().StringVar(&markup, "markup", "", "Replacement markup for the scene")
	cmd.Flags().StringVarP(&editFile, "file", "F", "", "JSON or YAML file containing a list of edits")
	return cmd
}

func collectEdits(cmd *cobra.Command, index int, comment, speech, markup, editFile string) ([]scene.Edit, error) {
	fromFile := strings.TrimSpace(editFile) != ""
	inline := cmd.Flags().Changed("comment") || cmd.Flags().Changed("speech") || cmd.Flags().Changed("markup")

	switch {
	case fromFile && inline:
		return nil, errors.New("use either --file or inline field flags, not both")
	case fromFile:
		data, err := os.ReadFile(editFile)
		if err != nil {
			return nil, fmt.Errorf("read edit file: %w", err)
		}
		return scene.DecodeEdits(data)
	case inline:
		if !cmd.Flags().Changed("scene") {
			return nil, errors.New("--scene is required with inline field flags")
		}
		edit := scene.Edit{Index: index}
		if cmd.Flags().Changed("comment") {
			edit.Comment = &comment
		}
		if cmd.Flags().Changed("speech") {
			edit.Speech = &speech
		}
		if cmd.Flags().Changed("markup") {
			edit.Markup = &markup
		}
		return []scene.Edit{edit}, nil
	default:
		return nil, errors.New("no edits given; pass --scene with field flags, or --file")
	}
}

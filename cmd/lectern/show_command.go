package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/sessionaccess"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <sessionID>",
		Short: "Display full session detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				sess, err := access.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if sess == nil {
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"error": "not_found"})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Session %d not found\n", id)
					return nil
				}

				scenes, err := access.Scenes(cmd.Context(), id)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"session":  sess,
						"versions": scenes.Versions,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session #%d: %s\n", sess.ID, sess.Title)
				fmt.Fprintf(out, "  Status: %s\n", formatStatusLabel(sess.Status))
				fmt.Fprintf(out, "  Deck: %s\n", sess.DeckPath)
				if sess.DeckMIME != "" || sess.DeckSHA256 != "" {
					fmt.Fprintf(out, "  Deck type: %s (sha256 %s)\n", sess.DeckMIME, formatDigest(sess.DeckSHA256))
				}
				fmt.Fprintf(out, "  Narration approved: %s\n", yesNo(sess.NarrationApproved))
				fmt.Fprintf(out, "  Annotation approved: %s\n", yesNo(sess.AnnotationApproved))
				if stage := strings.TrimSpace(sess.Progress.Stage); stage != "" {
					progress := formatStatusLabel(stage)
					if message := strings.TrimSpace(sess.Progress.Message); message != "" {
						progress += ": " + message
					}
					fmt.Fprintf(out, "  Progress: %s\n", progress)
				}
				if sess.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error: %s\n", sess.ErrorMessage)
				}
				if sess.ExportDir != "" {
					fmt.Fprintf(out, "  Export dir: %s\n", sess.ExportDir)
				}
				if sess.CreatedAt != "" {
					fmt.Fprintf(out, "  Created: %s\n", formatDisplayTime(sess.CreatedAt))
				}
				if sess.UpdatedAt != "" {
					fmt.Fprintf(out, "  Updated: %s\n", formatDisplayTime(sess.UpdatedAt))
				}

				if len(scenes.Versions) > 0 {
					fmt.Fprintln(out, "Scene set versions:")
					table := renderTable(
						[]string{"Stage", "Version", "Scenes", "Created"},
						buildVersionRows(scenes.Versions),
						[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
					)
					fmt.Fprintln(out, table)
				}
				return nil
			})
		},
	}
}

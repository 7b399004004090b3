package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/sessionaccess"
)

func newNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new <deck.pdf>",
		Short: "Register a slide deck and create a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("deck does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect deck: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if ext := strings.ToLower(filepath.Ext(info.Name())); ext != ".pdf" {
				return fmt.Errorf("unsupported deck extension %q (expected .pdf)", ext)
			}

			return ctx.withAccess(func(access sessionaccess.Access) error {
				sess, err := access.AddDeck(cmd.Context(), absPath)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, sess)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created session #%d (%s)\n", sess.ID, sess.Title)
				fmt.Fprintf(cmd.OutOrStdout(), "Run `lectern narrate %d` to generate narration\n", sess.ID)
				return nil
			})
		},
	}
}

func newNarrateCommand(ctx *commandContext) *cobra.Command {
	return newStageRunCommand(ctx, "narrate", "Generate narration scenes for a session")
}

func newAnnotateCommand(ctx *commandContext) *cobra.Command {
	return newStageRunCommand(ctx, "annotate", "Generate speech markup for a session")
}

func newStageRunCommand(ctx *commandContext, stageName, short string) *cobra.Command {
	return &cobra.Command{
		Use:   stageName + " <sessionID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				sess, message, err := access.RunStage(cmd.Context(), id, stageName)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"session": sess, "message": message})
				}
				out := cmd.OutOrStdout()
				if strings.TrimSpace(message) != "" {
					fmt.Fprintln(out, message)
				} else {
					fmt.Fprintf(out, "%s dispatched for session #%d\n", stageName, sess.ID)
				}
				return nil
			})
		},
	}
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <sessionID>",
		Short: "Sign off the current checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				sess, err := access.Approve(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, sess)
				}
				out := cmd.OutOrStdout()
				if sess.Status == "annotated" {
					fmt.Fprintf(out, "Annotation approved for session #%d\n", sess.ID)
					fmt.Fprintf(out, "Run `lectern export %d` to write the scene document\n", sess.ID)
					return nil
				}
				fmt.Fprintf(out, "Narration approved for session #%d\n", sess.ID)
				fmt.Fprintf(out, "Run `lectern annotate %d` to generate markup\n", sess.ID)
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <sessionID>",
		Short: "Write the approved scene document and script to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				outcome, err := access.Export(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, outcome)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Exported session #%d to %s\n", outcome.Session.ID, outcome.Dir)
				fmt.Fprintf(out, "  Scenes: %s\n", outcome.ScenesPath)
				fmt.Fprintf(out, "  Script: %s\n", outcome.ScriptPath)
				return nil
			})
		},
	}
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string

	cmd := &cobra.Command{
		Use:   "regenerate <sessionID>",
		Short: "Reopen a stage so it can be re-run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			stageName := strings.TrimSpace(stageFlag)
			if stageName == "" {
				return errors.New("--stage is required (narrate or annotate)")
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				sess, err := access.Regenerate(cmd.Context(), id, stageName)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, sess)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reopened %s for session #%d (now %s)\n", stageName, sess.ID, sess.Status)
				fmt.Fprintf(out, "Run `lectern %s %d` to regenerate\n", stageName, sess.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "Stage to reopen: narrate or annotate")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <sessionID>",
		Short: "Return a session to empty, discarding generated scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withAccess(func(access sessionaccess.Access) error {
				sess, err := access.Reset(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, sess)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset session #%d to %s\n", sess.ID, sess.Status)
				return nil
			})
		},
	}
}

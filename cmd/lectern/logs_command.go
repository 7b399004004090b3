package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/ipc"
	"lectern/internal/logs"
)

// newLogsCommand tails daemon logs. It prefers the HTTP log stream, falls
// back to the IPC tail when the API is not reachable, and finally reads the
// current log file directly so logs remain inspectable with no daemon at all.
func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if err := streamLogsFromAPI(cmd, cfg, lines, follow); err == nil {
				return nil
			} else if !errors.Is(err, logs.ErrAPIUnavailable) {
				return err
			}

			if client, dialErr := ctx.dialClient(); dialErr == nil {
				defer client.Close()
				return tailLogsOverIPC(cmd, client, lines, follow)
			}

			return tailLogFile(cmd, cfg, lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

func streamLogsFromAPI(cmd *cobra.Command, cfg *config.Config, lines int, follow bool) error {
	client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return err
	}
	if client == nil {
		return logs.ErrAPIUnavailable
	}

	ctx := cmd.Context()
	query := logs.StreamQuery{
		Limit: lines,
		Tail:  true,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			if logs.IsAPIUnavailable(err) {
				return logs.ErrAPIUnavailable
			}
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(cmd.OutOrStdout(), formatLogEvent(evt))
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

func tailLogsOverIPC(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	initialLimit := lines
	if initialLimit < 0 {
		initialLimit = 0
	}
	initialOffset := int64(-1)
	if initialLimit == 0 {
		initialOffset = 0
	}

	ctx := cmd.Context()
	offset := initialOffset
	limit := initialLimit
	printed := false

	for {
		req := ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
		}
		resp, err := client.LogTail(req)
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// tailLogFile reads the lectern.log pointer in the configured log directory.
func tailLogFile(cmd *cobra.Command, cfg *config.Config, lines int, follow bool) error {
	path := filepath.Join(cfg.Paths.LogDir, "lectern.log")

	initialLimit := lines
	if initialLimit < 0 {
		initialLimit = 0
	}
	offset := int64(-1)
	if initialLimit == 0 {
		offset = 0
	}

	ctx := cmd.Context()
	printed := false

	for {
		result, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: offset,
			Limit:  initialLimit,
			Follow: follow,
			Wait:   time.Second,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = result.Offset
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func formatLogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp
	if t, err := time.Parse(time.RFC3339Nano, evt.Timestamp); err == nil {
		ts = t.Format("2006-01-02 15:04:05")
	}
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if subject := composeSubject(evt.SessionID, evt.Stage); subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " – " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Key) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Key)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}

func composeSubject(sessionID int64, stage string) string {
	stage = strings.TrimSpace(stage)
	switch {
	case sessionID > 0 && stage != "":
		return fmt.Sprintf("Session #%d (%s)", sessionID, stage)
	case sessionID > 0:
		return fmt.Sprintf("Session #%d", sessionID)
	default:
		return stage
	}
}

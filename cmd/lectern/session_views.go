package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lectern/internal/api"
)

func parseSessionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func parseSessionIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseSessionID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func buildSessionStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildSessionListRows(sessions []api.Session) [][]string {
	if len(sessions) == 0 {
		return nil
	}
	sorted := make([]api.Session, len(sessions))
	copy(sorted, sessions)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseSessionTime(sorted[i].CreatedAt)
		tj := parseSessionTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, sess := range sorted {
		title := strings.TrimSpace(sess.Title)
		if title == "" {
			title = "Untitled"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", sess.ID),
			title,
			formatStatusLabel(sess.Status),
			formatApprovals(sess),
			formatDisplayTime(sess.CreatedAt),
		})
	}
	return rows
}

func buildSceneRows(scenes []api.Scene) [][]string {
	rows := make([][]string, 0, len(scenes))
	for _, sc := range scenes {
		rows = append(rows, []string{
			fmt.Sprintf("%d", sc.Index),
			sc.Comment,
			sc.Speech,
			sc.Markup,
		})
	}
	return rows
}

func buildVersionRows(versions []api.SceneSetInfo) [][]string {
	rows := make([][]string, 0, len(versions))
	for _, info := range versions {
		rows = append(rows, []string{
			formatStatusLabel(info.Stage),
			fmt.Sprintf("%d", info.Version),
			fmt.Sprintf("%d", info.SceneCount),
			formatDisplayTime(info.CreatedAt),
		})
	}
	return rows
}

// formatApprovals summarizes which checkpoints have been signed off.
func formatApprovals(sess api.Session) string {
	switch {
	case sess.AnnotationApproved:
		return "narration, annotation"
	case sess.NarrationApproved:
		return "narration"
	default:
		return "-"
	}
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseSessionTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatDigest(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}

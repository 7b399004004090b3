package api

import (
	"sort"
	"time"
)

// SortSessionsNewestFirst orders sessions by CreatedAt descending, breaking
// ties by ID descending.
func SortSessionsNewestFirst(sessions []Session) []Session {
	if len(sessions) == 0 {
		return nil
	}
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseSessionTime(sorted[i].CreatedAt)
		tj := parseSessionTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
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

// ParseSessionTime exposes session timestamp parsing for consumers that need
// display formatting.
func ParseSessionTime(value string) time.Time {
	return parseSessionTime(value)
}

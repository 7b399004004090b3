package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RetentionTarget names a directory whose matching files are subject to
// age-based cleanup.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files older than retentionDays from each target.
// Targets with missing directories are skipped.
func CleanupOldLogs(targets []RetentionTarget, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	removed := 0
	for _, target := range targets {
		if target.Dir == "" {
			continue
		}
		pattern := target.Pattern
		if pattern == "" {
			pattern = "*.log"
		}

		entries, err := os.ReadDir(target.Dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("read log directory %s: %w", target.Dir, err)
		}

		excluded := map[string]struct{}{}
		for _, name := range target.Exclude {
			if name == "" {
				continue
			}
			excluded[name] = struct{}{}
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if _, skip := excluded[name]; skip {
				continue
			}
			matched, err := filepath.Match(pattern, name)
			if err != nil {
				return removed, fmt.Errorf("log retention pattern %q: %w", pattern, err)
			}
			if !matched {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(target.Dir, name)); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return removed, fmt.Errorf("remove old log %s: %w", name, err)
			}
			removed++
		}
	}
	return removed, nil
}

package api

import "testing"

func TestSortSessionsNewestFirst(t *testing.T) {
	sessions := []Session{
		{ID: 1, CreatedAt: "2026-03-14T09:00:00.000Z"},
		{ID: 3, CreatedAt: "2026-03-14T11:00:00.000Z"},
		{ID: 2, CreatedAt: "2026-03-14T10:00:00.000Z"},
	}
	sorted := SortSessionsNewestFirst(sessions)
	if sorted[0].ID != 3 || sorted[1].ID != 2 || sorted[2].ID != 1 {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if sessions[0].ID != 1 {
		t.Fatal("input slice should not be mutated")
	}
}

func TestSortSessionsBreaksTiesByID(t *testing.T) {
	sessions := []Session{
		{ID: 5, CreatedAt: "2026-03-14T09:00:00.000Z"},
		{ID: 9, CreatedAt: "2026-03-14T09:00:00.000Z"},
	}
	sorted := SortSessionsNewestFirst(sessions)
	if sorted[0].ID != 9 || sorted[1].ID != 5 {
		t.Fatalf("unexpected tie-break order: %+v", sorted)
	}
}

func TestSortSessionsEmpty(t *testing.T) {
	if SortSessionsNewestFirst(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

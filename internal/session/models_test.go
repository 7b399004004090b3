package session_test

import (
	"testing"

	"lectern/internal/scene"
	"lectern/internal/session"
)

func TestStageStatuses(t *testing.T) {
	running, ready, rollback := session.StageStatuses(scene.StageNarrate)
	if running != session.StatusNarrating || ready != session.StatusNarrated || rollback != session.StatusEmpty {
		t.Fatalf("unexpected narrate statuses: %s %s %s", running, ready, rollback)
	}

	running, ready, rollback = session.StageStatuses(scene.StageAnnotate)
	if running != session.StatusAnnotating || ready != session.StatusAnnotated || rollback != session.StatusNarrated {
		t.Fatalf("unexpected annotate statuses: %s %s %s", running, ready, rollback)
	}
}

func TestCheckpointStage(t *testing.T) {
	cases := []struct {
		status session.Status
		stage  scene.Stage
		ok     bool
	}{
		{session.StatusEmpty, "", false},
		{session.StatusNarrating, "", false},
		{session.StatusNarrated, scene.StageNarrate, true},
		{session.StatusAnnotating, "", false},
		{session.StatusAnnotated, scene.StageAnnotate, true},
		{session.StatusExported, scene.StageAnnotate, true},
	}
	for _, tc := range cases {
		stage, ok := session.CheckpointStage(tc.status)
		if ok != tc.ok || stage != tc.stage {
			t.Fatalf("%s: expected (%q, %v), got (%q, %v)", tc.status, tc.stage, tc.ok, stage, ok)
		}
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := session.ParseStatus(" Narrated ")
	if !ok || status != session.StatusNarrated {
		t.Fatalf("expected narrated, got %q ok=%v", status, ok)
	}
	if _, ok := session.ParseStatus("failed"); ok {
		t.Fatal("expected failed to be unknown")
	}
	if _, ok := session.ParseStatus(""); ok {
		t.Fatal("expected empty input to be rejected")
	}
}

func TestSessionApproved(t *testing.T) {
	sess := session.Session{NarrationApproved: true}
	if !sess.Approved(scene.StageNarrate) {
		t.Fatal("expected narrate approval")
	}
	if sess.Approved(scene.StageAnnotate) {
		t.Fatal("expected annotate approval to be false")
	}
}

func TestIsProcessingStatus(t *testing.T) {
	if !session.IsProcessingStatus(session.StatusNarrating) || !session.IsProcessingStatus(session.StatusAnnotating) {
		t.Fatal("expected processing statuses to be recognized")
	}
	if session.IsProcessingStatus(session.StatusNarrated) {
		t.Fatal("narrated is a checkpoint, not processing")
	}
}

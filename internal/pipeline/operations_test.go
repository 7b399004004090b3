package pipeline_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"lectern/internal/generator"
	"lectern/internal/scene"
	"lectern/internal/services"
	"lectern/internal/session"
	"lectern/internal/testsupport"
)

func TestApplyEditsRejectsUnknownIndex(t *testing.T) {
	gen := &generator.Mock{SceneCount: 2}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Edit Bounds")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	before, err := store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		t.Fatalf("LatestSceneSet: %v", err)
	}

	_, err = runner.ApplyEdits(ctx, sess.ID, []scene.Edit{
		{Index: 0, Speech: strPtr("changed")},
		{Index: 7, Speech: strPtr("out of range")},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	after, err := store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		t.Fatalf("LatestSceneSet after: %v", err)
	}
	if after.Version != before.Version {
		t.Fatalf("expected no new version after rejected edits, got v%d", after.Version)
	}
	if !reflect.DeepEqual(after.Scenes, before.Scenes) {
		t.Fatal("expected scenes untouched after rejected edits")
	}
}

func TestApplyEditsIdempotent(t *testing.T) {
	gen := &generator.Mock{SceneCount: 2}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Edit Twice")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}

	edits := []scene.Edit{{Index: 0, Comment: strPtr("Intro"), Speech: strPtr("Welcome back.")}}
	first, err := runner.ApplyEdits(ctx, sess.ID, edits)
	if err != nil {
		t.Fatalf("first ApplyEdits: %v", err)
	}
	second, err := runner.ApplyEdits(ctx, sess.ID, edits)
	if err != nil {
		t.Fatalf("second ApplyEdits: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("expected version %d, got %d", first.Version+1, second.Version)
	}
	if !reflect.DeepEqual(first.Scenes, second.Scenes) {
		t.Fatal("expected identical scenes after repeated edits")
	}
}

func TestApplyEditsRequiresCheckpoint(t *testing.T) {
	runner, store, _ := newRunner(t, &generator.Mock{})
	sess := testsupport.NewSession(t, store, "No Checkpoint", "sha-edit")

	_, err := runner.ApplyEdits(context.Background(), sess.ID, []scene.Edit{{Index: 0, Speech: strPtr("x")}})
	if !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestApproveIdempotent(t *testing.T) {
	gen := &generator.Mock{}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Approve Twice")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	again, err := runner.Approve(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if !again.NarrationApproved {
		t.Fatal("expected narration approval to remain set")
	}
	if again.Status != session.StatusNarrated {
		t.Fatalf("expected approval to leave status at narrated, got %s", again.Status)
	}
}

func TestApproveRequiresCheckpoint(t *testing.T) {
	runner, store, _ := newRunner(t, &generator.Mock{})
	sess := testsupport.NewSession(t, store, "Approve Empty", "sha-approve")

	if _, err := runner.Approve(context.Background(), sess.ID); !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestRegenerateNarrateReopensSession(t *testing.T) {
	gen := &generator.Mock{SceneCount: 2}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Regen Narrate")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := runner.RunAnnotate(ctx, sess.ID); err != nil {
		t.Fatalf("RunAnnotate: %v", err)
	}

	reopened, err := runner.Regenerate(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if reopened.Status != session.StatusEmpty {
		t.Fatalf("expected empty after regenerate, got %s", reopened.Status)
	}
	if reopened.NarrationApproved || reopened.AnnotationApproved {
		t.Fatal("expected approvals cleared")
	}
	for _, st := range scene.Stages() {
		if set, err := store.LatestSceneSet(ctx, sess.ID, st); err != nil || set != nil {
			t.Fatalf("expected %s scene sets discarded, got %+v err %v", st, set, err)
		}
	}

	renarrated, err := runner.RunNarrate(ctx, sess.ID)
	if err != nil {
		t.Fatalf("narrate after regenerate: %v", err)
	}
	set, err := store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate)
	if err != nil {
		t.Fatalf("LatestSceneSet: %v", err)
	}
	if renarrated.Status != session.StatusNarrated || set.Version != 1 {
		t.Fatalf("expected fresh narration at v1, got status %s v%d", renarrated.Status, set.Version)
	}
}

func TestRegenerateAnnotateKeepsNarration(t *testing.T) {
	gen := &generator.Mock{SceneCount: 2}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Regen Annotate")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve narration: %v", err)
	}
	if _, err := runner.RunAnnotate(ctx, sess.ID); err != nil {
		t.Fatalf("RunAnnotate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve annotation: %v", err)
	}

	reopened, err := runner.Regenerate(ctx, sess.ID, scene.StageAnnotate)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if reopened.Status != session.StatusNarrated {
		t.Fatalf("expected narrated after annotate regenerate, got %s", reopened.Status)
	}
	if !reopened.NarrationApproved {
		t.Fatal("expected narration approval kept")
	}
	if reopened.AnnotationApproved {
		t.Fatal("expected annotation approval cleared")
	}
	if set, err := store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate); err != nil || set == nil {
		t.Fatalf("expected narrate scenes kept, got %+v err %v", set, err)
	}
	if set, err := store.LatestSceneSet(ctx, sess.ID, scene.StageAnnotate); err != nil || set != nil {
		t.Fatalf("expected annotate scenes discarded, got %+v err %v", set, err)
	}

	if _, err := runner.RunAnnotate(ctx, sess.ID); err != nil {
		t.Fatalf("annotate after regenerate: %v", err)
	}
}

func TestRegenerateReopensExportedSession(t *testing.T) {
	gen := &generator.Mock{SceneCount: 2}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Regen Export")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve narration: %v", err)
	}
	if _, err := runner.RunAnnotate(ctx, sess.ID); err != nil {
		t.Fatalf("RunAnnotate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve annotation: %v", err)
	}
	if _, _, err := runner.Export(ctx, sess.ID); err != nil {
		t.Fatalf("Export: %v", err)
	}

	reopened, err := runner.Regenerate(ctx, sess.ID, scene.StageAnnotate)
	if err != nil {
		t.Fatalf("Regenerate from exported: %v", err)
	}
	if reopened.Status != session.StatusNarrated {
		t.Fatalf("expected narrated, got %s", reopened.Status)
	}
	if reopened.ExportDir != "" {
		t.Fatalf("expected export dir cleared, got %q", reopened.ExportDir)
	}
}

func TestRegenerateRequiresContent(t *testing.T) {
	gen := &generator.Mock{}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Regen Nothing")
	ctx := context.Background()

	if _, err := runner.Regenerate(ctx, sess.ID, scene.StageNarrate); !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error on empty session, got %v", err)
	}

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Regenerate(ctx, sess.ID, scene.StageAnnotate); !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error regenerating annotate before it ran, got %v", err)
	}
}

func TestResetDiscardsEverything(t *testing.T) {
	gen := &generator.Mock{SceneCount: 2}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Reset Deck")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	reset, err := runner.Reset(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset.Status != session.StatusEmpty {
		t.Fatalf("expected empty, got %s", reset.Status)
	}
	if reset.NarrationApproved || reset.AnnotationApproved {
		t.Fatal("expected approvals cleared")
	}
	if reset.ErrorMessage != "" || reset.ProgressStage != "" {
		t.Fatalf("expected progress and error cleared, got %q / %q", reset.ProgressStage, reset.ErrorMessage)
	}
	if set, err := store.LatestSceneSet(ctx, sess.ID, scene.StageNarrate); err != nil || set != nil {
		t.Fatalf("expected scene sets discarded, got %+v err %v", set, err)
	}

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("narrate after reset: %v", err)
	}
}

func TestExportRequiresApproval(t *testing.T) {
	gen := &generator.Mock{}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Export Gate")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, err := runner.Approve(ctx, sess.ID); err != nil {
		t.Fatalf("Approve narration: %v", err)
	}
	if _, err := runner.RunAnnotate(ctx, sess.ID); err != nil {
		t.Fatalf("RunAnnotate: %v", err)
	}

	_, _, err := runner.Export(ctx, sess.ID)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	current, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.Status != session.StatusAnnotated {
		t.Fatalf("expected status untouched at annotated, got %s", current.Status)
	}
}

func TestExportRequiresAnnotatedStatus(t *testing.T) {
	gen := &generator.Mock{}
	runner, store, cfg := newRunner(t, gen)
	sess := testsupport.NewDeckSession(t, cfg, store, "Export Early")
	ctx := context.Background()

	if _, err := runner.RunNarrate(ctx, sess.ID); err != nil {
		t.Fatalf("RunNarrate: %v", err)
	}
	if _, _, err := runner.Export(ctx, sess.ID); !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error exporting from narrated, got %v", err)
	}
}

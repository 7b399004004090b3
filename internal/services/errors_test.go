package services_test

import (
	"errors"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrGeneration, "narrate", "generate", "model call failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"narrate", "generate", "model call failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToGeneration(t *testing.T) {
	err := services.Wrap(nil, "annotate", "generate", "", errors.New("io"))
	if !errors.Is(err, services.ErrGeneration) {
		t.Fatalf("expected generation marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expect services.Kind
	}{
		{"generation", services.Wrap(services.ErrGeneration, "narrate", "", "", nil), services.KindGeneration},
		{"precondition", services.Wrap(services.ErrPrecondition, "annotate", "", "", nil), services.KindPrecondition},
		{"validation", services.Wrap(services.ErrValidation, "checkpoint", "", "", nil), services.KindValidation},
		{"state", services.Wrap(services.ErrState, "pipeline", "", "", nil), services.KindState},
		{"not found", services.ErrNotFound, services.KindNotFound},
		{"configuration", services.ErrConfiguration, services.KindConfiguration},
		{"unknown", errors.New("misc"), services.KindUnknown},
		{"nil", nil, services.KindUnknown},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.expect {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expect, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrGeneration, "narrate", "generate", "timeout", nil)) {
		t.Fatal("generation errors should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrValidation, "checkpoint", "edit", "bad index", nil)) {
		t.Fatal("validation errors should not be retryable")
	}
	if services.Retryable(nil) {
		t.Fatal("nil should not be retryable")
	}
}

func TestDetailsRecoversStructuredFields(t *testing.T) {
	cause := errors.New("socket closed")
	err := services.Wrap(services.ErrGeneration, "annotate", "generate", "count mismatch", cause)

	details := services.Details(err)
	if details.Kind != services.KindGeneration {
		t.Fatalf("unexpected kind %s", details.Kind)
	}
	if details.Stage != "annotate" || details.Operation != "generate" {
		t.Fatalf("unexpected stage/operation: %q %q", details.Stage, details.Operation)
	}
	if details.Message != "count mismatch" {
		t.Fatalf("unexpected message %q", details.Message)
	}
	if !errors.Is(details.Cause, cause) {
		t.Fatalf("expected cause to be retained, got %v", details.Cause)
	}
}

func TestDetailsPlainError(t *testing.T) {
	details := services.Details(errors.New("plain failure"))
	if details.Kind != services.KindUnknown {
		t.Fatalf("unexpected kind %s", details.Kind)
	}
	if details.Message != "plain failure" {
		t.Fatalf("unexpected message %q", details.Message)
	}
}

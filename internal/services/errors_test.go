package services_test

import (
	"errors"
	"testing"

	"sitelog/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "transcribing", "validate input", "audio payload is empty", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got := services.Classify(err); got != services.KindValidation {
		t.Fatalf("expected validation kind, got %s", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalService, "structuring", "call provider", "request failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	if got := services.Classify(err); got != services.KindExternalService {
		t.Fatalf("expected external_service kind, got %s", got)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "submitting", "", "metadata write failed", nil)
	if got := services.Classify(err); got != services.KindTransient {
		t.Fatalf("expected transient kind, got %s", got)
	}
}

func TestUserMessageStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrEntitlement, "capture", "check access", "Trial expired", nil)
	got := services.UserMessage(err)
	if got != "capture: check access: Trial expired" {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestUserMessageNil(t *testing.T) {
	if got := services.UserMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}
}

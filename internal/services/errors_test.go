package services_test

import (
	"errors"
	"strings"
	"testing"

	"subconform/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "translate", "batch", "provider failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"translate", "batch", "provider failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
		user bool
	}{
		{services.Wrap(services.ErrValidation, "parse", "decode", "no cues", nil), "validation", true},
		{services.Wrap(services.ErrConfiguration, "translate", "", "missing api key", nil), "configuration", true},
		{services.Wrap(services.ErrTransient, "translate", "batch", "reset", errors.New("io")), "transient", false},
		{services.Wrap(services.ErrExternalTool, "translate", "batch", "bad gateway", nil), "external", false},
		{errors.New("plain"), "transient", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		if got := services.FailureKind(tt.err); got != tt.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
		if got := services.UserFacing(tt.err); got != tt.user {
			t.Fatalf("UserFacing(%v) = %v, want %v", tt.err, got, tt.user)
		}
	}
}

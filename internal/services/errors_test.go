package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mediafetch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "failed", base)
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
	for _, fragment := range []string{"download", "yt-dlp", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsClientError(t *testing.T) {
	if !services.IsClientError(services.Wrap(services.ErrValidation, "submit", "", "url is required", nil)) {
		t.Fatal("expected validation error to be a client error")
	}
	if services.IsClientError(services.Wrap(services.ErrExternalTool, "download", "", "exit 1", nil)) {
		t.Fatal("expected external tool error not to be a client error")
	}
}

func TestMessageStripsContext(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"wrapped", services.Wrap(services.ErrValidation, "submit", "validate request", "startTime: bad value", nil), "startTime: bad value"},
		{"nested", fmt.Errorf("handler: %w", services.Wrap(services.ErrValidation, "probe", "validate url", "URL is required", nil)), "URL is required"},
		{"no message", services.Wrap(services.ErrTimeout, "probe", "", "", nil), "timeout: probe"},
		{"plain", errors.New("plain failure"), "plain failure"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Message(tc.err); got != tc.want {
				t.Fatalf("Message() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKindClassifiesMarkers(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrValidation, "", "", "bad", nil), "invalid_request"},
		{services.Wrap(services.ErrTimeout, "probe", "", "slow", context.DeadlineExceeded), "timeout"},
		{services.Wrap(services.ErrExternalTool, "download", "", "exit 1", nil), "external_tool"},
		{errors.New("other"), "internal"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWrapFormatsChain(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "probe", "dump metadata", "ERROR: unsupported URL", errors.New("exit status 1"))
	want := "external tool error: probe: dump metadata: ERROR: unsupported URL: exit status 1"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

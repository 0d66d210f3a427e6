package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"evprobe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "ffprobe", "invoke", "failed", base)
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
	for _, fragment := range []string{"ffprobe", "invoke", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", services.Wrap(services.ErrValidation, "probe", "select", "bad", nil), http.StatusBadRequest},
		{"not found", services.Wrap(services.ErrNotFound, "probe", "stream", "", nil), http.StatusNotFound},
		{"timeout", services.Wrap(services.ErrTimeout, "ffprobe", "invoke", "", nil), http.StatusGatewayTimeout},
		{"transient", services.Wrap(services.ErrTransient, "ffprobe", "invoke", "", nil), http.StatusBadGateway},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "validate", "", errors.New("bad")), http.StatusInternalServerError},
		{"plain", errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

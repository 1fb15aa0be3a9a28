package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mranv/agentARChecker/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("no such file or directory")
	err := services.WithAgent(services.Wrap(services.KindConnection, "connect", base), "001")
	if !errors.Is(err, services.ErrConnection) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"connection error", "agent 001", "connect", "no such file"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindClassification(t *testing.T) {
	cases := []struct {
		kind      services.Kind
		marker    error
		retryable bool
	}{
		{services.KindConnection, services.ErrConnection, true},
		{services.KindIO, services.ErrIO, true},
		{services.KindAgentUnreachable, services.ErrAgentUnreachable, true},
		{services.KindDecode, services.ErrDecode, false},
		{services.KindNotConnected, services.ErrNotConnected, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.kind, "op", nil)
		if got := services.KindOf(err); got != tc.kind {
			t.Fatalf("KindOf: got %s want %s", got, tc.kind)
		}
		if !errors.Is(err, tc.marker) {
			t.Fatalf("%s: expected errors.Is marker match", tc.kind)
		}
		if services.Retryable(err) != tc.retryable {
			t.Fatalf("%s: expected retryable=%v", tc.kind, tc.retryable)
		}
	}
}

func TestUnclassifiedErrorsAreTerminal(t *testing.T) {
	plain := errors.New("boom")
	if services.KindOf(plain) != services.KindUnknown {
		t.Fatal("expected unknown kind for plain error")
	}
	if services.Retryable(plain) {
		t.Fatal("plain errors must not be retried")
	}
	if services.Retryable(nil) {
		t.Fatal("nil error is not retryable")
	}
	if services.WithAgent(nil, "001") != nil {
		t.Fatal("WithAgent(nil) must stay nil")
	}
}

func TestWithAgentDoesNotMutateOriginal(t *testing.T) {
	orig := services.Wrap(services.KindIO, "receive", errors.New("reset"))
	_ = services.WithAgent(orig, "007")
	if strings.Contains(orig.Error(), "007") {
		t.Fatalf("original error was mutated: %v", orig)
	}
}

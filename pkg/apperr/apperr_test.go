package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Conflict("already exists"), http.StatusBadRequest},
		{InvalidTransition("cannot move"), http.StatusBadRequest},
		{Authentication("bad credentials"), http.StatusUnauthorized},
		{Authorization("forbidden"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Internal(errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Errorf("Status(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestUserMessageHidesInternals(t *testing.T) {
	if msg := UserMessage(Internal(errors.New("password=hunter2"))); msg != "internal error" {
		t.Fatalf("internal cause leaked: %q", msg)
	}
	if msg := UserMessage(errors.New("raw driver error")); msg != "internal error" {
		t.Fatalf("unknown error leaked: %q", msg)
	}
	if msg := UserMessage(NotFound("match not found")); msg != "match not found" {
		t.Fatalf("domain message lost: %q", msg)
	}
}

func TestWrapPreservesKindThroughChain(t *testing.T) {
	inner := NotFound("tolerance not found")
	outer := fmt.Errorf("loading side: %w", inner)

	if KindOf(outer) != KindNotFound {
		t.Fatal("kind should survive fmt.Errorf wrapping")
	}
	if Status(outer) != http.StatusNotFound {
		t.Fatal("status should survive fmt.Errorf wrapping")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, KindInternal, "insert match")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
}

package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStoreErr_PassesClassifiedErrors(t *testing.T) {
	inner := newErr(KindFullyClaimed, "codes.claim", ErrFullyClaimed)
	if got := storeErr("outer", inner); got != inner {
		t.Fatalf("classified error was rewrapped: %v", got)
	}
	if storeErr("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	raw := errors.New("driver: connection refused")
	err := storeErr("op", raw)
	if KindOf(err) != KindStoreUnavailable || !errors.Is(err, raw) {
		t.Fatalf("unexpected wrap: %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(storeErr("op", errors.New("pq: secret detail"))); strings.Contains(got, "secret") {
		t.Fatalf("store failure leaked driver text: %q", got)
	}
	if got := UserMessage(validationErr("op", ErrEmptyCode)); got != ErrEmptyCode.Error() {
		t.Fatalf("UserMessage = %q", got)
	}
	if got := UserMessage(fmt.Errorf("plain")); got != "something went wrong" {
		t.Fatalf("UserMessage(plain) = %q", got)
	}
	if KindOf(errors.New("x")) != "" {
		t.Fatalf("KindOf(non-service) must be empty")
	}
	e := &Error{Kind: KindAuth, Op: "op"}
	if e.Error() != "op: auth_error" {
		t.Fatalf("Error() = %q", e.Error())
	}
}

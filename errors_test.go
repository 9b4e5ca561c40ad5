package sessionauth

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("%w: dial tcp: refused", ErrStoreUnavailable)
	err := newError(ErrUnexpected, "login", cause)

	if !errors.Is(err, ErrUnexpected) {
		t.Fatal("expected kind to match")
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("expected cause to match")
	}
	if err.Error() != ErrUnexpected.Error() {
		t.Fatalf("Error() = %q, must not include the cause", err.Error())
	}
	if Kind(err) != ErrUnexpected {
		t.Fatalf("Kind = %v", Kind(err))
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := newError(ErrIncorrectCredentials, "login", nil)
	if !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatal("expected kind to match")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatal("no cause expected")
	}
	if Kind(errors.New("plain")) != nil {
		t.Fatal("foreign errors have no kind")
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	plain := New(ErrNotFound, "subscription not found")
	if got := plain.Error(); got != "[NOT_FOUND] subscription not found" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(ErrDatabase, "insert subscription", stderrors.New("disk full"))
	if got := wrapped.Error(); got != "[DATABASE_ERROR] insert subscription: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	wrapped := Wrap(ErrDatabase, "insert", cause)

	if !stderrors.Is(wrapped, cause) {
		t.Error("errors.Is does not find the wrapped cause")
	}
}

func TestIsMatchesThroughChain(t *testing.T) {
	inner := Wrap(ErrCrypto, "decrypt field", stderrors.New("bad tag"))
	outer := fmt.Errorf("load subscription: %w", inner)

	if !Is(outer, ErrCrypto) {
		t.Error("Is did not match the code through fmt.Errorf wrapping")
	}
	if Is(outer, ErrDatabase) {
		t.Error("Is matched the wrong code")
	}
	if Is(stderrors.New("plain"), ErrCrypto) {
		t.Error("Is matched a plain error")
	}
	if Is(nil, ErrCrypto) {
		t.Error("Is matched nil")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrSchedule, "register")); got != ErrSchedule {
		t.Errorf("CodeOf = %q, want %q", got, ErrSchedule)
	}
	if got := CodeOf(stderrors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf of plain error = %q, want %q", got, ErrInternal)
	}
}

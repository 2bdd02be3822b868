package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "module not found")
		if err.Error() != "[NOT_FOUND] module not found" {
			t.Errorf("expected [NOT_FOUND] module not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("parse a.f90: %w", New(CodeLiteral, "bad enumerator"))
		if !IsCode(err, CodeLiteral) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
	})

	t.Run("Structural", func(t *testing.T) {
		err := Structural("a.f90", 12, "unexpected %s", "CONTAINS")
		if !IsCode(err, CodeStructural) {
			t.Fatal("expected structural code")
		}
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxLine] != 12 || de.Context[CtxPath] != "a.f90" {
			t.Errorf("unexpected context %v", de.Context)
		}
	})

	t.Run("AddContextPlainError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxPath, "x.f90")
		code, ok := CodeOf(err)
		if !ok || code != CodeInternal {
			t.Errorf("expected internal code, got %q", code)
		}
	})

	t.Run("AddContextKeepsCode", func(t *testing.T) {
		err := AddContext(Resolution("m", "foo", "unresolved use"), CtxPath, "x.f90")
		if !IsCode(err, CodeResolution) {
			t.Error("expected resolution code to survive AddContext")
		}
	})
}

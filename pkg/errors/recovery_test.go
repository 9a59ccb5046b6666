package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "GetGradient")
		panic("index out of range")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "GetGradient" {
		t.Errorf("Expected operation 'GetGradient', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if panicErr.Error() != "panic in GetGradient: index out of range" {
		t.Errorf("unexpected message: %s", panicErr.Error())
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "GetGradient")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "GetGradient")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "panic in GetGradient") {
		t.Errorf("Error message should contain panic info: %s", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("Wrapped error should still match the original error")
	}
}

func TestSafeExecute(t *testing.T) {
	testCases := []struct {
		name    string
		fn      func() error
		wantErr string
		isPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "function error", fn: func() error { return New("bad row") }, wantErr: "bad row"},
		{name: "string panic", fn: func() error { panic("boom") }, wantErr: "panic in partition: boom", isPanic: true},
		{name: "integer panic", fn: func() error { panic(42) }, wantErr: "panic in partition: 42", isPanic: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := SafeExecute("partition", tc.fn)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("got %v, want %q", err, tc.wantErr)
			}
			var panicErr *PanicError
			if errors.As(err, &panicErr) != tc.isPanic {
				t.Errorf("PanicError match = %v, want %v", !tc.isPanic, tc.isPanic)
			}
		})
	}
}

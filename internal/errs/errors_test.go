package errs

import (
	"fmt"
	"testing"
)

func TestClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		transient bool
		permanent bool
	}{
		{"serialization", fmt.Errorf("commit: %w", ErrSerialization), true, false, false},
		{"conflict", ErrConflict, false, true, false},
		{"network", fmt.Errorf("post: %w", ErrTransient), false, true, false},
		{"insufficient", ErrInsufficientFunds, false, false, true},
		{"not found", fmt.Errorf("wallet: %w", ErrNotFound), false, false, true},
		{"validation", ErrInvalid, false, false, true},
		{"nil", nil, false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.retryable {
				t.Fatalf("Retryable=%v want %v", got, tc.retryable)
			}
			if got := Transient(tc.err); got != tc.transient {
				t.Fatalf("Transient=%v want %v", got, tc.transient)
			}
			if got := Permanent(tc.err); got != tc.permanent {
				t.Fatalf("Permanent=%v want %v", got, tc.permanent)
			}
		})
	}
}

func TestCodeRoundTrip(t *testing.T) {
	for _, e := range []error{ErrInsufficientFunds, ErrConflict, ErrNotFound, ErrValidation, ErrInUse, ErrIdempotencyMismatch} {
		if got := FromCode(Code(e)); got != e {
			t.Fatalf("code %q mapped to %v, want %v", Code(e), got, e)
		}
	}
	if FromCode("teapot") != nil {
		t.Fatalf("unknown code should map to nil")
	}
}

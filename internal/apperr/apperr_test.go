package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("toggle: %w", NotFound("commit batch", "shopping item", "abc"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("not-found error should not match ErrValidation")
	}
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("KindOf = %v, want %v", got, KindNotFound)
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Unavailable("commit batch", cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("expected ErrUnavailable")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Validation("mark bill paid", "category is required"), "mark bill paid: category is required"},
		{NotFound("get", "bill", "b1"), `get: bill "b1" not found`},
		{Permission("commit batch", errors.New("readonly")), "commit batch: readonly"},
		{&Error{Kind: KindUnavailable, Msg: "store closed"}, "store closed"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("KindOf = %v, want %v", got, KindUnknown)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}
}

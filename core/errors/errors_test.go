package errors

import (
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	sentinel := New("trade", "OrderNotFound", KindResource)
	wrapped := fmt.Errorf("match: %w", sentinel)
	if !Is(wrapped, sentinel) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if got := KindOf(wrapped); got != KindResource {
		t.Fatalf("unexpected kind: %s", got)
	}
	if got := CodeOf(wrapped); got != "OrderNotFound" {
		t.Fatalf("unexpected code: %q", got)
	}
	if sentinel.Error() != "trade: OrderNotFound" {
		t.Fatalf("unexpected message: %q", sentinel.Error())
	}
}

func TestKindOfUntyped(t *testing.T) {
	if got := KindOf(fmt.Errorf("disk full")); got != KindInternal {
		t.Fatalf("expected internal kind, got %s", got)
	}
	if CodeOf(fmt.Errorf("disk full")) != "" {
		t.Fatalf("expected empty code")
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	a := New("token", "Overflow", KindArithmetic)
	b := New("token", "Overflow", KindArithmetic)
	if Is(a, b) {
		t.Fatalf("separately declared sentinels must not match")
	}
}

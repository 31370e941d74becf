package lazy

import (
	"errors"
	"testing"
)

func TestValueNotEvaluatedUntilEval(t *testing.T) {
	calls := 0
	v := New(func() (float64, error) {
		calls++
		return 10, nil
	})

	mapped := v.Map(func(x float64) float64 { return x * 2 }).Add(1)
	if calls != 0 {
		t.Fatalf("resolver called %d times during composition", calls)
	}

	got, err := mapped.Eval()
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 21 {
		t.Errorf("Eval() = %g, want 21", got)
	}

	// Not memoized.
	if _, err := mapped.Eval(); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("resolver calls = %d, want 2", calls)
	}
}

func TestValueReadsCurrentInput(t *testing.T) {
	var input *float64
	v := New(func() (float64, error) {
		if input == nil {
			return 0, ErrUnresolved
		}
		return *input, nil
	}).Add(5)

	if _, err := v.Eval(); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Eval before input = %v, want ErrUnresolved", err)
	}

	x := 7.0
	input = &x
	got, err := v.Eval()
	if err != nil || got != 12 {
		t.Errorf("Eval() = %g, %v; want 12", got, err)
	}
}

func TestZeroValue(t *testing.T) {
	var v Value
	if !v.IsZero() {
		t.Error("zero Value should report IsZero")
	}
	if _, err := v.Eval(); !errors.Is(err, ErrUnresolved) {
		t.Errorf("Eval on zero Value = %v, want ErrUnresolved", err)
	}
	if Const(3).IsZero() {
		t.Error("Const should not be zero")
	}
}

func TestPoint(t *testing.T) {
	p := NewPoint(Const(1), Const(2)).Add(10, 20)
	x, y, err := p.Eval()
	if err != nil {
		t.Fatal(err)
	}
	if x != 11 || y != 22 {
		t.Errorf("Eval() = (%g, %g), want (11, 22)", x, y)
	}

	bad := NewPoint(Const(1), New(func() (float64, error) { return 0, ErrUnresolved }))
	if _, _, err := bad.Eval(); !errors.Is(err, ErrUnresolved) {
		t.Errorf("Eval() err = %v, want ErrUnresolved", err)
	}
}

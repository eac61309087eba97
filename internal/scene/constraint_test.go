package scene

import "testing"

func TestInputsCountConstraintExactly(t *testing.T) {
	c := Exactly(3)
	if err := c.Check(3); err != nil {
		t.Fatalf("expected 3 children to satisfy Exactly(3), got %v", err)
	}
	if err := c.Check(2); err == nil {
		t.Fatal("expected 2 children to violate Exactly(3)")
	}
}

func TestInputsCountConstraintRangeUnbounded(t *testing.T) {
	c := InputsCountConstraint{Lower: 2}
	if err := c.Check(2); err != nil {
		t.Fatalf("expected lower bound 2 to be satisfied, got %v", err)
	}
	if err := c.Check(100); err != nil {
		t.Fatalf("expected unbounded upper to accept any count above lower, got %v", err)
	}
	if err := c.Check(1); err == nil {
		t.Fatal("expected 1 child to violate a lower bound of 2")
	}
}

package scene

import "github.com/livecompositor/core/internal/cerrors"

// InputsCountConstraint bounds how many children a Tiles component may
// declare (spec §9 Open Question: resolved as a single inclusive range
// rather than two separate exact/range constraint shapes).
type InputsCountConstraint struct {
	Lower int
	Upper int // 0 means unbounded
}

// Exactly builds a constraint satisfied only by exactly n children.
func Exactly(n int) InputsCountConstraint {
	return InputsCountConstraint{Lower: n, Upper: n}
}

// Check validates childCount against the constraint.
func (c InputsCountConstraint) Check(childCount int) error {
	if childCount < c.Lower || (c.Upper > 0 && childCount > c.Upper) {
		return cerrors.New(cerrors.KindInvalidScene,
			"tiles requires between %d and %d children, got %d", c.Lower, c.Upper, childCount)
	}
	return nil
}

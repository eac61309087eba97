package scheduler

import "github.com/livecompositor/core/internal/types"

// EOSCondition evaluates an output's declared end-of-stream predicate
// against the set of inputs currently flagged end-of-stream.
type EOSCondition func(eosInputs map[types.InputID]bool) bool

// AllInputsEOS is satisfied once every named input has reached EOS.
func AllInputsEOS(ids ...types.InputID) EOSCondition {
	want := append([]types.InputID{}, ids...)
	return func(eosInputs map[types.InputID]bool) bool {
		for _, id := range want {
			if !eosInputs[id] {
				return false
			}
		}
		return true
	}
}

// AnyInputEOS is satisfied as soon as one named input has reached EOS.
func AnyInputEOS(ids ...types.InputID) EOSCondition {
	want := append([]types.InputID{}, ids...)
	return func(eosInputs map[types.InputID]bool) bool {
		for _, id := range want {
			if eosInputs[id] {
				return true
			}
		}
		return false
	}
}

// NeverEOS never closes the output on its own; it must be unregistered explicitly.
func NeverEOS() EOSCondition {
	return func(map[types.InputID]bool) bool { return false }
}

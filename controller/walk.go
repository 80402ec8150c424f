package controller

import "iter"

// WalkStates yields the states of m in pre-order: the direct states of a
// machine first, then each sub-machine in declared order.
func WalkStates(m StateMachine) iter.Seq[State] {
	return func(yield func(State) bool) {
		walkStates(m, yield)
	}
}

func walkStates(m StateMachine, yield func(State) bool) bool {
	for _, s := range m.States {
		if !yield(s) {
			return false
		}
	}
	for _, sub := range m.SubStateMachines {
		if !walkStates(sub, yield) {
			return false
		}
	}
	return true
}

// AllStates walks every layer's state machine in layer order.
func (c Controller) AllStates() iter.Seq[State] {
	return func(yield func(State) bool) {
		for _, l := range c.Layers {
			if !walkStates(l.StateMachine, yield) {
				return
			}
		}
	}
}

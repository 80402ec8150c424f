// Package flatten converts hierarchical controller sources into flat
// controller.Controller records.
package flatten

import (
	"errors"
	"fmt"

	"github.com/milk9111/animdb/controller"
)

var (
	ErrUnknownParameterType = errors.New("flatten: unrecognized parameter type")
	ErrDuplicateState       = errors.New("flatten: duplicate state unique name hash")
	ErrDuplicateParameter   = errors.New("flatten: duplicate parameter name")
	ErrNoStateMachine       = errors.New("flatten: layer has no state machine")
	ErrNilSubStateMachine   = errors.New("flatten: nil sub state machine")
)

type Flattener struct {
	hash         controller.HashFunc
	legacyVector bool
}

type Option func(*Flattener)

// WithHash sets the name hash. The default is controller.XXH3.
func WithHash(h controller.HashFunc) Option {
	return func(f *Flattener) {
		if h != nil {
			f.hash = h
		}
	}
}

// WithLegacyVector accepts the legacy Vector parameter type in place of
// Trigger, for assets authored against the old engine version.
func WithLegacyVector(enabled bool) Option {
	return func(f *Flattener) {
		f.legacyVector = enabled
	}
}

func New(opts ...Option) *Flattener {
	f := &Flattener{hash: controller.XXH3}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Hash returns the name hash the flattener applies.
func (f *Flattener) Hash(name string) int32 {
	return f.hash(name)
}

func (f *Flattener) ConvertParameterType(t SourceParameterType) (controller.ParameterType, error) {
	switch t {
	case SourceFloat:
		return controller.ParameterFloat, nil
	case SourceInt:
		return controller.ParameterInt, nil
	case SourceBool:
		return controller.ParameterBool, nil
	case SourceTrigger:
		if !f.legacyVector {
			return controller.ParameterTrigger, nil
		}
	case SourceVector:
		if f.legacyVector {
			return controller.ParameterVector, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownParameterType, int(t))
}

// Flatten builds the Controller record for src.
func (f *Flattener) Flatten(src Source) (controller.Controller, error) {
	out := controller.Controller{ID: src.Identity()}

	params, err := f.convertParameters(src)
	if err != nil {
		return controller.Controller{}, err
	}
	out.Parameters = params

	all, err := f.collectStates(src)
	if err != nil {
		return controller.Controller{}, err
	}

	out.Layers = make([]controller.Layer, 0, src.LayerCount())
	for i := 0; i < src.LayerCount(); i++ {
		name, root := src.Layer(i)
		out.Layers = append(out.Layers, controller.Layer{
			Name:         name,
			Hash:         f.hash(name),
			StateMachine: f.ConvertStateMachine(root, all),
		})
	}
	return out, nil
}

func (f *Flattener) convertParameters(src Source) ([]controller.Parameter, error) {
	params := make([]controller.Parameter, 0, src.ParameterCount())
	seen := make(map[string]bool, src.ParameterCount())
	for i := 0; i < src.ParameterCount(); i++ {
		name, typ := src.Parameter(i)
		if seen[name] {
			return nil, fmt.Errorf("flatten: %s: parameter %q: %w", src.Path(), name, ErrDuplicateParameter)
		}
		seen[name] = true

		t, err := f.ConvertParameterType(typ)
		if err != nil {
			return nil, fmt.Errorf("flatten: %s: parameter %q: %w", src.Path(), name, err)
		}
		params = append(params, controller.Parameter{Name: name, Type: t})
	}
	return params, nil
}

// collectStates gathers every state of the controller once, in pre-order
// across layers, and rejects unique name hashes that occur twice.
func (f *Flattener) collectStates(src Source) ([]controller.State, error) {
	var all []controller.State
	seen := make(map[int32]string)

	for i := 0; i < src.LayerCount(); i++ {
		layer, root := src.Layer(i)
		if root == nil {
			return nil, fmt.Errorf("flatten: %s: layer %q: %w", src.Path(), layer, ErrNoStateMachine)
		}

		stack := []Machine{root}
		for len(stack) > 0 {
			m := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for j := 0; j < m.StateCount(); j++ {
				s := f.state(m, j)
				if prev, ok := seen[s.UniqueNameHash]; ok {
					return nil, fmt.Errorf("flatten: %s: state %q collides with %q: %w", src.Path(), s.UniqueName, prev, ErrDuplicateState)
				}
				seen[s.UniqueNameHash] = s.UniqueName
				all = append(all, s)
			}
			for j := m.MachineCount() - 1; j >= 0; j-- {
				sub := m.Machine(j)
				if sub == nil {
					return nil, fmt.Errorf("flatten: %s: layer %q: machine %q: sub state machine %d: %w", src.Path(), layer, m.Name(), j, ErrNilSubStateMachine)
				}
				stack = append(stack, sub)
			}
		}
	}
	return all, nil
}

func (f *Flattener) state(m Machine, i int) controller.State {
	name, unique := m.State(i)
	if unique == "" {
		unique = m.Name() + "." + name
	}
	return controller.State{Name: name, UniqueName: unique, UniqueNameHash: f.hash(unique)}
}

// ConvertStateMachine builds the tree rooted at m. The states of each machine
// are taken from all, keeping the ones declared directly in that machine in
// the order they appear in all.
func (f *Flattener) ConvertStateMachine(m Machine, all []controller.State) controller.StateMachine {
	out := controller.StateMachine{
		Name:             m.Name(),
		Hash:             f.hash(m.Name()),
		States:           []controller.State{},
		SubStateMachines: make([]controller.StateMachine, 0, m.MachineCount()),
	}

	direct := make(map[int32]struct{}, m.StateCount())
	for i := 0; i < m.StateCount(); i++ {
		direct[f.state(m, i).UniqueNameHash] = struct{}{}
	}
	for _, s := range all {
		if _, ok := direct[s.UniqueNameHash]; ok {
			out.States = append(out.States, s)
		}
	}

	for i := 0; i < m.MachineCount(); i++ {
		// Flatten rejects nil children; direct callers get them dropped.
		if sub := m.Machine(i); sub != nil {
			out.SubStateMachines = append(out.SubStateMachines, f.ConvertStateMachine(sub, all))
		}
	}
	return out
}

// Package controller holds the flattened, serializable records baked out of
// animator-controller assets.
package controller

// ID identifies the source asset a Controller was baked from. It is only
// ever compared for equality.
type ID string

// State is a leaf of a state machine.
type State struct {
	Name           string `yaml:"name" json:"name"`
	UniqueName     string `yaml:"unique_name" json:"unique_name"`
	UniqueNameHash int32  `yaml:"unique_name_hash" json:"unique_name_hash"`
}

type StateMachine struct {
	Name             string         `yaml:"name" json:"name"`
	Hash             int32          `yaml:"hash" json:"hash"`
	States           []State        `yaml:"states" json:"states"`
	SubStateMachines []StateMachine `yaml:"sub_state_machines" json:"sub_state_machines"`
}

type Parameter struct {
	Name string        `yaml:"name" json:"name"`
	Type ParameterType `yaml:"type" json:"type"`
}

type Layer struct {
	Name         string       `yaml:"name" json:"name"`
	Hash         int32        `yaml:"hash" json:"hash"`
	StateMachine StateMachine `yaml:"state_machine" json:"state_machine"`
}

// Controller is the flattened record of one controller asset.
type Controller struct {
	ID         ID          `yaml:"controller" json:"controller"`
	Parameters []Parameter `yaml:"parameters" json:"parameters"`
	Layers     []Layer     `yaml:"layers" json:"layers"`
}

// Clone returns a deep copy of m.
func (m StateMachine) Clone() StateMachine {
	out := StateMachine{
		Name:   m.Name,
		Hash:   m.Hash,
		States: cloneSlice(m.States),
	}
	if m.SubStateMachines != nil {
		out.SubStateMachines = make([]StateMachine, len(m.SubStateMachines))
		for i, sub := range m.SubStateMachines {
			out.SubStateMachines[i] = sub.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of l.
func (l Layer) Clone() Layer {
	return Layer{Name: l.Name, Hash: l.Hash, StateMachine: l.StateMachine.Clone()}
}

// Clone returns a deep copy of c.
func (c Controller) Clone() Controller {
	out := Controller{ID: c.ID, Parameters: cloneSlice(c.Parameters)}
	if c.Layers != nil {
		out.Layers = make([]Layer, len(c.Layers))
		for i, l := range c.Layers {
			out.Layers[i] = l.Clone()
		}
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

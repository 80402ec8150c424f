package flatten

import "github.com/milk9111/animdb/controller"

// SourceParameterType is the parameter type tag as stored in controller
// assets. Values follow the engine's serialized m_Type numbering.
type SourceParameterType int

const (
	SourceFloat   SourceParameterType = 1
	SourceVector  SourceParameterType = 2
	SourceInt     SourceParameterType = 3
	SourceBool    SourceParameterType = 4
	SourceTrigger SourceParameterType = 9
)

// Source is a hierarchical controller as exposed by the asset model.
type Source interface {
	Identity() controller.ID
	// Path locates the asset in error messages.
	Path() string
	ParameterCount() int
	Parameter(i int) (name string, typ SourceParameterType)
	LayerCount() int
	Layer(i int) (name string, root Machine)
}

// Machine is one node of a source state machine tree.
type Machine interface {
	Name() string
	StateCount() int
	// State returns the i-th state declared directly in this machine. An
	// empty uniqueName defaults to "<machine>.<state>".
	State(i int) (name, uniqueName string)
	MachineCount() int
	Machine(i int) Machine
}

// Package source reads authored controller assets and exposes them to the
// flattener.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/flatten"
	"gopkg.in/yaml.v3"
)

const KindController = "controller"

var (
	// ErrNotController marks a YAML file that is not a controller asset.
	ErrNotController = errors.New("source: not a controller asset")
	ErrInvalidAsset  = errors.New("source: invalid controller asset")
)

func LoadSpec[T any](fsys fs.FS, name string) (T, error) {
	var zero T
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return zero, fmt.Errorf("source: load %s: %w", name, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("source: unmarshal %s: %w", name, err)
	}

	return spec, nil
}

type ControllerSpec struct {
	Kind       string          `yaml:"kind"`
	ID         string          `yaml:"id"`
	Parameters []ParameterSpec `yaml:"parameters"`
	Layers     []LayerSpec     `yaml:"layers"`

	path string
}

type ParameterSpec struct {
	Name string       `yaml:"name"`
	Type ParameterTag `yaml:"type"`
}

type LayerSpec struct {
	Name         string       `yaml:"name"`
	StateMachine *MachineSpec `yaml:"state_machine"`
}

type MachineSpec struct {
	MachineName string         `yaml:"name"`
	States      []StateSpec    `yaml:"states"`
	Machines    []*MachineSpec `yaml:"state_machines"`
}

type StateSpec struct {
	Name       string `yaml:"name"`
	UniqueName string `yaml:"unique_name"`
}

// ParameterTag accepts either the engine's numeric type tag or its name.
type ParameterTag flatten.SourceParameterType

var parameterTagNames = map[string]flatten.SourceParameterType{
	"float":   flatten.SourceFloat,
	"vector":  flatten.SourceVector,
	"int":     flatten.SourceInt,
	"bool":    flatten.SourceBool,
	"trigger": flatten.SourceTrigger,
}

func (t *ParameterTag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("parameter type must be a scalar")
	}
	if v, ok := parameterTagNames[strings.ToLower(strings.TrimSpace(value.Value))]; ok {
		*t = ParameterTag(v)
		return nil
	}
	var n int
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid parameter type %q", value.Value)
	}
	// Unknown numbers are kept so the flattener can report them with the
	// asset and parameter name.
	*t = ParameterTag(n)
	return nil
}

// LoadController reads the controller asset at name. Files that declare a
// kind other than KindController fail with ErrNotController. Empty files and
// files without a kind fail with ErrInvalidAsset.
func LoadController(fsys fs.FS, name string) (*ControllerSpec, error) {
	spec, err := LoadSpec[ControllerSpec](fsys, name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Kind) == "" {
		return nil, fmt.Errorf("%w: %s: missing kind", ErrInvalidAsset, name)
	}
	if !strings.EqualFold(spec.Kind, KindController) {
		return nil, fmt.Errorf("%w: %s has kind %q", ErrNotController, name, spec.Kind)
	}
	spec.path = name
	if spec.ID == "" {
		spec.ID = DefaultID(name)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// DefaultID derives an identity from an asset path by dropping the
// controller extension.
func DefaultID(name string) string {
	s := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(strings.ToLower(s), ext) {
			s = s[:len(s)-len(ext)]
			break
		}
	}
	if strings.HasSuffix(strings.ToLower(s), ".controller") {
		s = s[:len(s)-len(".controller")]
	}
	return s
}

func (c *ControllerSpec) validate() error {
	for _, l := range c.Layers {
		if l.StateMachine == nil {
			continue
		}
		if err := l.StateMachine.validate(); err != nil {
			return fmt.Errorf("%w: %s: layer %q: %w", ErrInvalidAsset, c.path, l.Name, err)
		}
	}
	return nil
}

func (m *MachineSpec) validate() error {
	for i, sub := range m.Machines {
		if sub == nil {
			return fmt.Errorf("machine %q: sub machine %d is empty", m.MachineName, i)
		}
		if err := sub.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *ControllerSpec) Identity() controller.ID { return controller.ID(c.ID) }
func (c *ControllerSpec) Path() string            { return c.path }
func (c *ControllerSpec) ParameterCount() int     { return len(c.Parameters) }
func (c *ControllerSpec) LayerCount() int         { return len(c.Layers) }

func (c *ControllerSpec) Parameter(i int) (string, flatten.SourceParameterType) {
	p := c.Parameters[i]
	return p.Name, flatten.SourceParameterType(p.Type)
}

func (c *ControllerSpec) Layer(i int) (string, flatten.Machine) {
	l := c.Layers[i]
	if l.StateMachine == nil {
		return l.Name, nil
	}
	return l.Name, l.StateMachine
}

func (m *MachineSpec) Name() string      { return m.MachineName }
func (m *MachineSpec) StateCount() int   { return len(m.States) }
func (m *MachineSpec) MachineCount() int { return len(m.Machines) }

func (m *MachineSpec) State(i int) (string, string) {
	return m.States[i].Name, m.States[i].UniqueName
}

func (m *MachineSpec) Machine(i int) flatten.Machine {
	return m.Machines[i]
}

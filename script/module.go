// Package script exposes a controller table to tengo scripts as the
// "animdb" module.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/table"
)

const ModuleName = "animdb"

// Module builds the attributes of the animdb module. Lookups of unknown
// controllers return a tengo error value instead of failing the script.
func Module(tbl *table.Table, hash controller.HashFunc) map[string]tengo.Object {
	if hash == nil {
		hash = controller.XXH3
	}
	return map[string]tengo.Object{
		"states": idFunc("states", func(id controller.ID) (tengo.Object, error) {
			states, err := tbl.GetStates(id)
			if err != nil {
				return nil, err
			}
			return statesArray(states), nil
		}),
		"parameters": idFunc("parameters", func(id controller.ID) (tengo.Object, error) {
			params, err := tbl.GetParameters(id)
			if err != nil {
				return nil, err
			}
			out := make([]tengo.Object, len(params))
			for i, p := range params {
				out[i] = &tengo.ImmutableMap{Value: map[string]tengo.Object{
					"name": &tengo.String{Value: p.Name},
					"type": &tengo.String{Value: p.Type.String()},
				}}
			}
			return &tengo.ImmutableArray{Value: out}, nil
		}),
		"layers": idFunc("layers", func(id controller.ID) (tengo.Object, error) {
			layers, err := tbl.GetLayers(id)
			if err != nil {
				return nil, err
			}
			out := make([]tengo.Object, len(layers))
			for i, l := range layers {
				out[i] = &tengo.ImmutableMap{Value: map[string]tengo.Object{
					"name":          &tengo.String{Value: l.Name},
					"hash":          &tengo.Int{Value: int64(l.Hash)},
					"state_machine": machineObject(l.StateMachine),
				}}
			}
			return &tengo.ImmutableArray{Value: out}, nil
		}),
		"layer_count": idFunc("layer_count", func(id controller.ID) (tengo.Object, error) {
			n, err := tbl.GetLayerCount(id)
			if err != nil {
				return nil, err
			}
			return &tengo.Int{Value: int64(n)}, nil
		}),
		"has": idFunc("has", func(id controller.ID) (tengo.Object, error) {
			return tengo.FromInterface(tbl.Has(id))
		}),
		"find_state": &tengo.UserFunction{Name: "find_state", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 2 {
				return nil, tengo.ErrWrongNumArguments
			}
			id, ok := tengo.ToString(args[0])
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "first", Expected: "string", Found: args[0].TypeName()}
			}
			h, ok := tengo.ToInt64(args[1])
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "second", Expected: "int", Found: args[1].TypeName()}
			}
			s, err := tbl.FindState(controller.ID(id), int32(h))
			if err != nil {
				return lookupError(err)
			}
			return stateObject(s), nil
		}},
		"hash": &tengo.UserFunction{Name: "hash", Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			name, ok := tengo.ToString(args[0])
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "first", Expected: "string", Found: args[0].TypeName()}
			}
			return &tengo.Int{Value: int64(hash(name))}, nil
		}},
	}
}

func idFunc(name string, fn func(controller.ID) (tengo.Object, error)) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, ok := tengo.ToString(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "first", Expected: "string", Found: args[0].TypeName()}
		}
		id = strings.TrimSpace(id)
		obj, err := fn(controller.ID(id))
		if err != nil {
			return lookupError(err)
		}
		return obj, nil
	}}
}

// lookupError turns table failures into script-visible error values.
// Anything else aborts the script.
func lookupError(err error) (tengo.Object, error) {
	if errors.Is(err, table.ErrNotFound) || errors.Is(err, table.ErrStateNotFound) {
		return &tengo.Error{Value: &tengo.String{Value: err.Error()}}, nil
	}
	return nil, err
}

func stateObject(s controller.State) tengo.Object {
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"name":             &tengo.String{Value: s.Name},
		"unique_name":      &tengo.String{Value: s.UniqueName},
		"unique_name_hash": &tengo.Int{Value: int64(s.UniqueNameHash)},
	}}
}

func statesArray(states []controller.State) tengo.Object {
	out := make([]tengo.Object, len(states))
	for i, s := range states {
		out[i] = stateObject(s)
	}
	return &tengo.ImmutableArray{Value: out}
}

func machineObject(m controller.StateMachine) tengo.Object {
	subs := make([]tengo.Object, len(m.SubStateMachines))
	for i, sub := range m.SubStateMachines {
		subs[i] = machineObject(sub)
	}
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"name":               &tengo.String{Value: m.Name},
		"hash":               &tengo.Int{Value: int64(m.Hash)},
		"states":             statesArray(m.States),
		"sub_state_machines": &tengo.ImmutableArray{Value: subs},
	}}
}

// Modules returns the tengo standard library plus the animdb module.
func Modules(tbl *table.Table, hash controller.HashFunc) *tengo.ModuleMap {
	modules := stdlib.GetModuleMap(stdlib.AllModuleNames()...)
	modules.AddBuiltinModule(ModuleName, Module(tbl, hash))
	return modules
}

// Run compiles and runs src with the animdb module importable. The returned
// Compiled exposes the script's globals.
func Run(ctx context.Context, src []byte, tbl *table.Table, hash controller.HashFunc, vars map[string]any) (*tengo.Compiled, error) {
	s := tengo.NewScript(src)
	s.SetImports(Modules(tbl, hash))
	for name, v := range vars {
		if err := s.Add(name, v); err != nil {
			return nil, fmt.Errorf("script: add %s: %w", name, err)
		}
	}
	compiled, err := s.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return compiled, nil
}

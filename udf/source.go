// Package udf evaluates user supplied source terms written in Starlark.
//
// The script defines a function
//
//	def source(t, x, y, z, cell):
//	    return {"mass": 0.0, "total-energy": 1.0e3 * cell.rho}
//
// returning the source per unit volume for any subset of the conserved slots,
// named as in the state layout. cell carries rho, p, T, u, v, w and a.
package udf

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/state"
)

const (
	EntryPoint = "source"
	// DefaultMaxSteps bounds the work of one call.
	DefaultMaxSteps = 100000
)

// SourceTerms is safe for concurrent use. The script globals are frozen after
// loading and every call runs on its own thread.
type SourceTerms struct {
	Name     string
	MaxSteps uint64
	fn       starlark.Callable
	slots    map[string]int
}

// NewSourceTerms loads script under name, which is only used in messages.
func NewSourceTerms(name, script string, l state.Layout) (st *SourceTerms, err error) {
	thread := &starlark.Thread{
		Name:  name,
		Print: func(*starlark.Thread, string) {},
	}
	predeclared := starlark.StringDict{
		"struct": starlarkstruct.Default,
	}
	var globals starlark.StringDict
	if globals, err = starlark.ExecFile(thread, name, script, predeclared); err != nil {
		return nil, fmt.Errorf("loading source terms %s: %w", name, err)
	}
	globals.Freeze()
	fn, ok := globals[EntryPoint].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("source terms %s do not define a function %q", name, EntryPoint)
	}
	st = &SourceTerms{
		Name:     name,
		MaxSteps: DefaultMaxSteps,
		fn:       fn,
		slots:    make(map[string]int, l.N),
	}
	for i := 0; i < l.N; i++ {
		st.slots[l.SlotName(i)] = i
	}
	return
}

func cellStruct(fs *state.FlowState) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"rho": starlark.Float(fs.Rho),
		"p":   starlark.Float(fs.P),
		"T":   starlark.Float(fs.T),
		"u":   starlark.Float(fs.Vel[0]),
		"v":   starlark.Float(fs.Vel[1]),
		"w":   starlark.Float(fs.Vel[2]),
		"a":   starlark.Float(fs.A),
	})
}

// Evaluate adds the script's sources for the cell at pos to q.
func (st *SourceTerms) Evaluate(t float64, pos geometry.Vector3, fs *state.FlowState, q state.ConservedQuantities) (err error) {
	thread := &starlark.Thread{
		Name:  st.Name,
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(st.MaxSteps)
	var (
		args = starlark.Tuple{starlark.Float(t), starlark.Float(pos[0]), starlark.Float(pos[1]),
			starlark.Float(pos[2]), cellStruct(fs)}
		res starlark.Value
	)
	if res, err = starlark.Call(thread, st.fn, args, nil); err != nil {
		return fmt.Errorf("source terms %s at %v: %w", st.Name, pos, err)
	}
	if res == starlark.None {
		return
	}
	dict, ok := res.(*starlark.Dict)
	if !ok {
		return fmt.Errorf("source terms %s returned %s, want dict", st.Name, res.Type())
	}
	for _, item := range dict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return fmt.Errorf("source terms %s: key %s is not a string", st.Name, item[0])
		}
		slot, ok := st.slots[key]
		if !ok {
			return fmt.Errorf("source terms %s: no conserved quantity %q", st.Name, key)
		}
		v, ok := starlark.AsFloat(item[1])
		if !ok {
			return fmt.Errorf("source terms %s: %q: %s is not a number", st.Name, key, item[1].Type())
		}
		q[slot] += v
	}
	return
}

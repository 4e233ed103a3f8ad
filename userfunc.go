package keycalc

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// UserFunc is a user-defined operator: a template tree whose free variables
// are the operator's arguments. The template is shared by every call site. It
// is bound to one call site at a time, only while that call site evaluates.
type UserFunc struct {
	mu       sync.Mutex
	template *Node
	// args maps argument names to child indices of a call site.
	args  map[string]int
	names []string
	arity Arity
}

// NewUserFunc creates a user-defined operator from a copy of template. args
// maps each free variable of the template to the index of the call site
// argument that supplies it. The variables must be exactly the names in args,
// and the indices must run from 0 without gaps. The operator takes as many
// arguments as there are names.
func NewUserFunc(name string, args map[string]int, template *Node) (Value, error) {
	names := make([]string, len(args))
	seen := make([]bool, len(args))
	for k, i := range args {
		if i < 0 || i >= len(args) || seen[i] {
			return Value{}, &MissingArgumentError{Node: template, Reason: "argument indices of " + strconv.Quote(name) + " must run from 0 to " + strconv.Itoa(len(args)-1) + " without gaps"}
		}
		seen[i] = true
		names[i] = k
	}
	t := template.Copy()
	r, err := t.Evaluate()
	if err != nil {
		return Value{}, err
	}
	free := r.Free()
	want := slices.Clone(names)
	slices.Sort(want)
	if !slices.Equal(free, want) {
		return Value{}, &MissingArgumentError{
			Node:   template,
			Reason: "variables [" + strings.Join(free, ", ") + "] of " + strconv.Quote(name) + " do not match arguments [" + strings.Join(want, ", ") + "]",
		}
	}
	u := &UserFunc{
		template: t,
		args:     maps.Clone(args),
		names:    names,
		arity:    Arguments(Count(len(names))),
	}
	if u.args == nil {
		u.args = map[string]int{}
	}
	return Value{kind: KindUser, name: name, user: u}, nil
}

// InferArgs returns an argument map for a template: its free variables in
// sorted order.
func InferArgs(template *Node) (map[string]int, error) {
	r, err := template.Copy().Evaluate()
	if err != nil {
		return nil, err
	}
	args := make(map[string]int, len(r.free))
	for i, k := range r.free {
		args[k] = i
	}
	return args, nil
}

// Define creates a user-defined operator and registers it under name.
func (r *Registry) Define(name string, args map[string]int, template *Node) (Value, error) {
	v, err := NewUserFunc(name, args, template)
	if err != nil {
		return Value{}, err
	}
	r.Register(name, v)
	return v, nil
}

// DefineInferred is like Define, with the template's free variables in sorted
// order as the arguments.
func (r *Registry) DefineInferred(name string, template *Node) (Value, error) {
	args, err := InferArgs(template)
	if err != nil {
		return Value{}, err
	}
	return r.Define(name, args, template)
}

// UserFunc returns the definition of a user-defined operator, or nil if v is
// not one.
func (v Value) UserFunc() *UserFunc {
	return v.user
}

// Template returns a copy of the operator's template.
func (u *UserFunc) Template() *Node {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.template.Copy()
}

// Args returns a copy of the map from argument names to indices.
func (u *UserFunc) Args() map[string]int {
	return maps.Clone(u.args)
}

// ArgNames returns the argument names in index order.
func (u *UserFunc) ArgNames() []string {
	return slices.Clone(u.names)
}

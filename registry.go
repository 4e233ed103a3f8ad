package keycalc

import (
	"slices"
	"sync"
)

// Registry maps names to prototype values. Parsers and decoders copy values
// out of a registry, so registering a name does not change trees already
// built. A Registry is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Value
}

// rootValue is the container at the top of every parsed tree. It holds one
// expression and evaluates to it.
var rootValue = Operator(RootName, Builtin{
	Arity:  Arguments(OneOrMore),
	Reduce: func(args []float64) float64 { return args[0] },
	ArgName: func(i int) string {
		if i == 0 {
			return "expression"
		}
		return ""
	},
})

// NewRegistry creates a registry holding only the reserved values: the root
// container, placeholders, variables, and number literals.
func NewRegistry() *Registry {
	r := &Registry{ops: make(map[string]Value)}
	r.ops[RootName] = rootValue
	r.ops[PlaceholderName] = Placeholder()
	r.ops[VariableName] = Variable("")
	r.ops[NumberName] = Value{kind: KindNumber, name: NumberName}
	return r
}

// DefaultRegistry creates a registry holding the reserved values plus the
// default operators and constants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, b := range defaultOperators {
		r.ops[name] = Operator(name, b)
	}
	for name, x := range defaultConstants {
		r.ops[name] = Constant(name, x)
	}
	return r
}

// Register adds v under name, replacing any value already there.
func (r *Registry) Register(name string, v Value) {
	v.name = name
	r.mu.Lock()
	r.ops[name] = v
	r.mu.Unlock()
}

// RegisterConstant adds a named constant.
func (r *Registry) RegisterConstant(name string, x float64) {
	r.Register(name, Constant(name, x))
}

// Unregister removes a name. It reports whether the name was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ops[name]
	delete(r.ops, name)
	return ok
}

// Lookup returns the prototype registered under name.
func (r *Registry) Lookup(name string) (Value, bool) {
	r.mu.RLock()
	v, ok := r.ops[name]
	r.mu.RUnlock()
	return v, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.ops))
	for k := range r.ops {
		names = append(names, k)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := &Registry{ops: make(map[string]Value, len(r.ops))}
	for k, v := range r.ops {
		n.ops[k] = v
	}
	return n
}

// resolve looks up a token's name and applies its arguments to a copy of the
// prototype.
func (r *Registry) resolve(name string, args []string) (Value, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return Value{}, &UnknownOperationError{Name: name, Args: args}
	}
	if err := v.configure(args); err != nil {
		return Value{}, err
	}
	return v, nil
}

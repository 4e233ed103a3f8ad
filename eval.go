package keycalc

import (
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Result is the outcome of evaluating a tree: either a number, or the names of
// the free variables the tree still depends on.
type Result struct {
	x    float64
	free []string
}

// IsNumber reports whether r is a number rather than a set of free variables.
func (r Result) IsNumber() bool {
	return r.free == nil
}

// Number returns the numeric result, or NaN if r is a set of free variables.
func (r Result) Number() float64 {
	if r.free != nil {
		return math.NaN()
	}
	return r.x
}

// Free returns the sorted names of the free variables r depends on, or nil if
// r is a number.
func (r Result) Free() []string {
	return append(([]string)(nil), r.free...)
}

func (r Result) String() string {
	if r.free != nil {
		return "f(" + strings.Join(r.free, ", ") + ")"
	}
	return strconv.FormatFloat(r.x, 'g', -1, 64)
}

// Evaluate evaluates the tree rooted at n. Variables that no user-defined
// operator binds are passed to the resolver on n's topmost ancestor, if any.
func (n *Node) Evaluate() (Result, error) {
	var e evaluator
	return e.eval(n)
}

// evaluator holds the state of one evaluation.
type evaluator struct {
	// bound holds the argument values of the user-defined operator call sites
	// whose templates are bound.
	bound map[*Node][]float64
}

// eval evaluates a node's children, then the node.
func (e *evaluator) eval(n *Node) (Result, error) {
	switch n.value.kind {
	case KindNumber, KindConstant:
		return Result{x: n.value.Number()}, nil
	case KindPlaceholder:
		return Result{}, &MissingArgumentError{Node: n, Reason: "empty slot"}
	case KindVariable:
		return e.variable(n)
	}
	args := make([]float64, 0, len(n.children))
	var free []string
	for _, c := range n.children {
		r, err := e.eval(c)
		if err != nil {
			return Result{}, err
		}
		if r.free != nil {
			free = union(free, r.free)
			continue
		}
		args = append(args, r.x)
	}
	if free != nil {
		return Result{free: free}, nil
	}
	switch n.value.kind {
	case KindOperator:
		a := n.value.op.Arity
		if !a.accepts(len(args)) {
			return Result{}, &MissingArgumentError{Node: n, Reason: "expected " + a.String() + " but have " + strconv.Itoa(len(args))}
		}
		return Result{x: n.value.op.Reduce(args)}, nil
	case KindUser:
		return e.call(n, args)
	default:
		panic("keycalc: invalid value kind " + n.value.kind.String())
	}
}

// variable resolves a variable, first through the user-defined operator call
// sites its template is bound to, then through the root's resolver.
func (e *evaluator) variable(n *Node) (Result, error) {
	name := n.value.VarName()
	prev, top := n, n
	for p := n.parent; p != nil; prev, p = p, p.parent {
		top = p
		if p.value.kind != KindUser || prev != p.value.user.template {
			// Arguments of a call site belong to the caller's scope.
			continue
		}
		i, ok := p.value.user.args[name]
		if !ok {
			continue
		}
		if args, ok := e.bound[p]; ok && i < len(args) {
			return Result{x: args[i]}, nil
		}
		if i < len(p.children) {
			return e.eval(p.children[i])
		}
	}
	if top.resolve != nil {
		if x, ok := top.resolve(name); ok {
			return Result{x: x}, nil
		}
	}
	return Result{free: []string{name}}, nil
}

// call evaluates a user-defined operator by binding its template to the call
// site n for the duration of the evaluation.
func (e *evaluator) call(n *Node, args []float64) (Result, error) {
	u := n.value.user
	if !u.arity.accepts(len(args)) {
		return Result{}, &MissingArgumentError{Node: n, Reason: "expected " + u.arity.String() + " but have " + strconv.Itoa(len(args))}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.template.parent = n
	defer func() { u.template.parent = nil }()
	if e.bound == nil {
		e.bound = make(map[*Node][]float64)
	}
	e.bound[n] = args
	defer delete(e.bound, n)
	return e.eval(u.template)
}

// union merges two sorted sets of names.
func union(a, b []string) []string {
	if len(a) == 0 {
		return append(([]string)(nil), b...)
	}
	r := append(a, b...)
	slices.Sort(r)
	k := 1
	for i := 1; i < len(r); i++ {
		if r[i] != r[k-1] {
			r[k] = r[i]
			k++
		}
	}
	return r[:k]
}

// Eval is a shortcut to tokenize text, parse it with a registry, and evaluate
// the result.
func Eval(reg *Registry, src io.RuneScanner, opts ...ParserOption) (Result, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return Result{}, err
	}
	p := NewParser(reg, opts...)
	if err := p.ParseAll(toks); err != nil {
		return Result{}, err
	}
	return p.Evaluate()
}

// EvalString is a shortcut to tokenize, parse, and evaluate a string.
func EvalString(reg *Registry, src string, opts ...ParserOption) (Result, error) {
	return Eval(reg, strings.NewReader(src), opts...)
}

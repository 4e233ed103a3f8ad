package keycalc

import (
	"slices"
	"strconv"
)

// Node is an element of an expression tree. A node owns its children. Its
// parent link only observes the node above it and is nil for a root.
type Node struct {
	value    Value
	children []*Node
	parent   *Node
	// resolve looks up variables that nothing in the tree binds. Only a root's
	// resolver is consulted.
	resolve Resolver
}

// Resolver supplies values for free variables. The result is false if the
// resolver has no value for the name. A resolver is called again on every
// evaluation and may return different values each time.
type Resolver func(name string) (float64, bool)

// NewNode creates a detached node holding v and no children.
func NewNode(v Value) *Node {
	return &Node{value: v}
}

// NewRoot creates the initial tree of a Parser: a root container holding a
// single placeholder.
func NewRoot() *Node {
	root := &Node{value: rootValue}
	root.children = []*Node{{value: Placeholder(), parent: root}}
	return root
}

// Value returns the value held by n.
func (n *Node) Value() Value {
	return n.value
}

// Parent returns the node above n, or nil if n is a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Len returns the number of children of n.
func (n *Node) Len() int {
	return len(n.children)
}

// Child returns the i'th child of n.
func (n *Node) Child(i int) *Node {
	return n.children[i]
}

// Children returns a copy of the list of n's children.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// SetResolver attaches a resolver for free variables to n. It only takes
// effect when n is the root of the tree being evaluated. A nil resolver
// removes it.
func (n *Node) SetResolver(r Resolver) {
	n.resolve = r
}

// Walk calls f on n and its descendants in depth-first order. Walk stops
// descending into a node's children when f returns false for it.
func (n *Node) Walk(f func(*Node) bool) {
	if !f(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(f)
	}
}

// Copy returns a deep copy of n with no links into the original. The copy is
// a root and has no resolver.
func (n *Node) Copy() *Node {
	m := &Node{value: n.value}
	if n.children != nil {
		m.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			cc := c.Copy()
			cc.parent = m
			m.children[i] = cc
		}
	}
	return m
}

// find returns the index of child in n's children, or -1.
func (n *Node) find(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// merges reports whether adding child to n splices child's operands into n
// instead of nesting it, which keeps chains like 1 + 2 + 3 flat.
func (n *Node) merges(child *Node) bool {
	a := n.value.Arity()
	return a.Class == ClassPriority &&
		child.value.kind == n.value.kind &&
		child.value.name == n.value.name &&
		child.value.Arity() == a
}

// adopt sets the parent links of nodes to n.
func (n *Node) adopt(nodes []*Node) {
	for _, c := range nodes {
		c.parent = n
	}
}

// add appends child to n's children. The result is the node at which
// insertion continues: n itself if child merged into it, otherwise child.
func (n *Node) add(child *Node) (*Node, error) {
	if !n.value.Arity().slots() {
		return nil, &InsertionError{Token: child.value.String(), Node: n, Reason: "no argument slots"}
	}
	if n.merges(child) {
		n.adopt(child.children)
		n.children = append(n.children, child.children...)
		child.children = nil
		return n, nil
	}
	child.parent = n
	n.children = append(n.children, child)
	return child, nil
}

// insertParent puts parent in n's position and makes n its first child. The
// result is the node at which insertion continues.
func (n *Node) insertParent(parent *Node) (*Node, error) {
	p := n.parent
	if p == nil {
		return nil, &InsertionError{Token: parent.value.String(), Node: n, Reason: "cannot wrap the root"}
	}
	if !parent.value.Arity().slots() {
		return nil, &InsertionError{Token: parent.value.String(), Node: n, Reason: "no argument slots"}
	}
	if _, err := parent.add(n); err != nil {
		return nil, err
	}
	return p.replace(n, parent)
}

// replace substitutes repl for the child old. The result is the node at which
// insertion continues: n itself if repl merged into it, otherwise repl.
func (n *Node) replace(old, repl *Node) (*Node, error) {
	i := n.find(old)
	if i < 0 {
		return nil, &InsertionError{Token: repl.value.String(), Node: n, Reason: strconv.Quote(old.value.String()) + " is not a child"}
	}
	if old.parent == n {
		old.parent = nil
	}
	if n.merges(repl) {
		n.adopt(repl.children)
		n.children = slices.Replace(n.children, i, i+1, repl.children...)
		repl.children = nil
		return n, nil
	}
	repl.parent = n
	n.children[i] = repl
	return repl, nil
}

// nextSlot returns the argument slot that follows after, which must be a
// child or the parent of n. Finishing the last operand of a priority operator
// moves on to the slot after the operator itself. When there is nowhere
// further to go, the result is n.
func (n *Node) nextSlot(after *Node) (*Node, error) {
	if after == nil || len(n.children) == 0 {
		return n, nil
	}
	if after == n.parent {
		return n.children[0], nil
	}
	if after == n.children[len(n.children)-1] {
		if n.value.Arity().Class == ClassPriority && n.parent != nil {
			return n.parent.nextSlot(n)
		}
		return n, nil
	}
	if i := n.find(after); i >= 0 {
		return n.children[i+1], nil
	}
	return nil, &AdvanceError{Node: n, After: after}
}

// fill appends k fresh placeholders to n and returns the first one, or nil if
// k is zero.
func (n *Node) fill(k int) *Node {
	var first *Node
	for i := 0; i < k; i++ {
		c := &Node{value: Placeholder(), parent: n}
		n.children = append(n.children, c)
		if first == nil {
			first = c
		}
	}
	return first
}

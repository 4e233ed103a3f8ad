package keycalc

import (
	"strings"
)

// String renders the tree rooted at n in infix form. Nested groups alternate
// between round and square brackets, and placeholders print as _.
func (n *Node) String() string {
	var b strings.Builder
	n.fmt(&b, false, nil)
	return b.String()
}

// fmt writes n to b. The node equal to cursor is marked with bars.
func (n *Node) fmt(b *strings.Builder, square bool, cursor *Node) {
	if n == cursor {
		b.WriteByte('|')
		defer b.WriteByte('|')
	}
	if len(n.children) == 0 {
		b.WriteString(n.value.String())
		return
	}
	if n.value.name == RootName {
		n.fmtlist(b, 0, ", ", square, cursor)
		return
	}
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	switch n.value.Arity().Class {
	case ClassPriority:
		b.WriteByte(l)
		n.fmtlist(b, 0, " "+n.value.name+" ", !square, cursor)
		b.WriteByte(r)
	case ClassPrefix:
		b.WriteByte(l)
		n.children[0].fmt(b, !square, cursor)
		b.WriteByte(' ')
		b.WriteString(n.value.name)
		if len(n.children) > 1 {
			b.WriteByte(' ')
			n.fmtlist(b, 1, " ", !square, cursor)
		}
		b.WriteByte(r)
	default:
		b.WriteString(n.value.name)
		b.WriteByte(l)
		n.fmtlist(b, 0, ", ", !square, cursor)
		b.WriteByte(r)
	}
}

// fmtlist writes n's children from index k on, separated by sep.
func (n *Node) fmtlist(b *strings.Builder, k int, sep string, square bool, cursor *Node) {
	for i, c := range n.children[k:] {
		if i > 0 {
			b.WriteString(sep)
		}
		c.fmt(b, square, cursor)
	}
}

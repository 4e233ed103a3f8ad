package keycalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(t *testing.T, s string) *Node {
	t.Helper()
	v, err := Literal(s)
	require.NoError(t, err)
	return NewNode(v)
}

func op(t *testing.T, reg *Registry, name string) *Node {
	t.Helper()
	v, ok := reg.Lookup(name)
	require.True(t, ok, "no operator %q", name)
	return NewNode(v)
}

func TestNodeAdd(t *testing.T) {
	reg := DefaultRegistry()
	plus := op(t, reg, "+")
	one := lit(t, "1")
	next, err := plus.add(one)
	require.NoError(t, err)
	assert.Same(t, one, next)
	assert.Same(t, plus, one.Parent())

	inner := op(t, reg, "+")
	inner.fill(2)
	next, err = plus.add(inner)
	require.NoError(t, err)
	assert.Same(t, plus, next, "same operator must merge")
	assert.Equal(t, 3, plus.Len())
	for _, c := range plus.Children() {
		assert.Same(t, plus, c.Parent())
	}

	times := op(t, reg, "*")
	next, err = plus.add(times)
	require.NoError(t, err)
	assert.Same(t, times, next, "different operators must nest")

	_, err = one.add(lit(t, "2"))
	var ierr *InsertionError
	assert.ErrorAs(t, err, &ierr)
}

func TestNodeInsertParent(t *testing.T) {
	reg := DefaultRegistry()
	root := NewRoot()
	_, err := root.insertParent(op(t, reg, "abs"))
	var ierr *InsertionError
	require.ErrorAs(t, err, &ierr)

	two := lit(t, "2")
	_, err = root.replace(root.Child(0), two)
	require.NoError(t, err)
	abs := op(t, reg, "abs")
	next, err := two.insertParent(abs)
	require.NoError(t, err)
	assert.Same(t, abs, next)
	assert.Same(t, abs, root.Child(0))
	assert.Same(t, root, abs.Parent())
	assert.Same(t, two, abs.Child(0))
	assert.Same(t, abs, two.Parent())

	_, err = two.insertParent(lit(t, "3"))
	require.ErrorAs(t, err, &ierr)
	assert.Same(t, abs, two.Parent(), "failed insertion must not change the tree")
}

func TestNodeReplace(t *testing.T) {
	reg := DefaultRegistry()
	plus := op(t, reg, "+")
	a, b := lit(t, "1"), lit(t, "2")
	plus.add(a)
	plus.add(b)
	_, err := plus.replace(lit(t, "9"), lit(t, "3"))
	var ierr *InsertionError
	require.ErrorAs(t, err, &ierr)

	inner := op(t, reg, "+")
	inner.add(lit(t, "3"))
	inner.add(lit(t, "4"))
	next, err := plus.replace(a, inner)
	require.NoError(t, err)
	assert.Same(t, plus, next)
	assert.Nil(t, a.Parent())
	require.Equal(t, 3, plus.Len())
	assert.Equal(t, "3", plus.Child(0).Value().Text())
	assert.Equal(t, "4", plus.Child(1).Value().Text())
	assert.Same(t, b, plus.Child(2))
}

func TestNodeNextSlot(t *testing.T) {
	p := parse(t, DefaultRegistry(), "pow 1 + 2 -> 3")
	pow := p.Root().Child(0)
	plus := pow.Child(0)
	cases := []struct {
		name  string
		n     *Node
		after *Node
		want  *Node
	}{
		{"nil", plus, nil, plus},
		{"leaf", plus.Child(0), plus, plus.Child(0)},
		{"from-parent", pow, p.Root(), plus},
		{"sibling", plus, plus.Child(0), plus.Child(1)},
		{"priority-climbs", plus, plus.Child(1), pow.Child(1)},
		{"last", pow, pow.Child(1), pow},
		{"root", p.Root(), pow, p.Root()},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			got, err := c.n.nextSlot(c.after)
			require.NoError(t, err)
			assert.Same(t, c.want, got)
		})
	}
	_, err := pow.nextSlot(plus.Child(0))
	var aerr *AdvanceError
	assert.ErrorAs(t, err, &aerr)
}

func TestNodeCopy(t *testing.T) {
	p := parse(t, DefaultRegistry(), "pow 2 -> abs -4 + 2")
	p.Root().SetResolver(func(string) (float64, bool) { return 0, false })
	c := p.Root().Copy()
	assert.Equal(t, p.Root().String(), c.String())
	assert.Nil(t, c.resolve)
	assert.Nil(t, c.Parent())
	orig := map[*Node]bool{}
	p.Root().Walk(func(n *Node) bool { orig[n] = true; return true })
	c.Walk(func(n *Node) bool {
		assert.False(t, orig[n], "copy shares node %v", n)
		for _, k := range n.children {
			assert.Same(t, n, k.parent)
		}
		return true
	})
	require.NoError(t, p.Parse("+"))
	assert.NotEqual(t, p.Root().String(), c.String())
}

func TestNodeRoot(t *testing.T) {
	p := parse(t, DefaultRegistry(), "pow 2 -> abs -4")
	assert.Same(t, p.Root(), p.Cursor().Root())
	assert.Same(t, p.Root(), p.Root().Root())
}

package keycalc

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse feeds space-separated tokens to a new parser.
func parse(t *testing.T, reg *Registry, src string, opts ...ParserOption) *Parser {
	t.Helper()
	p := NewParser(reg, opts...)
	require.NoError(t, p.ParseAll(strings.Fields(src)), "parsing %q", src)
	return p
}

func TestParseEval(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want float64
	}{
		{"single", "7", 7},
		{"flat", "1 + 2 + 3", 6},
		{"precedence", "2 + 5 * 2 * 1.5 + 1 + 1", 19},
		{"prefix", "5 ^ 3", 125},
		{"prefix-first", "^ 2 -> 10", 1024},
		{"prefix-none", "3 cbe - 2", 25},
		{"prefix-none-first", "sqr 3", 9},
		{"prefix-swallows", "2 ^ 3 + 1", 16},
		{"prefix-advance", "2 ^ 3 -> + 1", 9},
		{"split-number", "2 + 4 6 . 5 +-", -44.5},
		{"nested", "pow 2 -> abs -4 + 2 + 0 -> * 1.5", 8},
		{"constant", "2 * pi", 2 * math.Pi},
		{"sub-add", "1 - 2 + 3", 2},
		{"add-sub", "1 + 2 - 3", 0},
		{"div-chain", "8 / 2 / 2", 2},
		{"mul-div", "2 * 6 / 3", 4},
		{"call-advance", "neg 2 -> * 3", -6},
		{"log", "log 8 -> 2", 3},
		{"seeded", "#number:2.5 * 2", 5},
		{"exponent", "1e3 + 1", 1001},
		{"sign-twice", "3 +- +-", 3},
	}
	reg := DefaultRegistry()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			p := parse(t, reg, c.src)
			r, err := p.Evaluate()
			require.NoError(t, err)
			require.True(t, r.IsNumber(), "result %v", r)
			assert.InDelta(t, c.want, r.Number(), 1e-12)
		})
	}
}

func TestParseFlat(t *testing.T) {
	p := parse(t, DefaultRegistry(), "1 + 2 + 3")
	sum := p.Root().Child(0)
	assert.Equal(t, "+", sum.Value().Name())
	require.Equal(t, 3, sum.Len())
	for i, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, sum.Child(i).Value().Text())
		assert.Same(t, sum, sum.Child(i).Parent())
	}
}

func TestParseString(t *testing.T) {
	cases := []struct {
		name string
		src  string
		tree string
		edit string
	}{
		{"empty", "", "_", "|_|"},
		{"number", "4 2", "42", "|42|"},
		{"infix", "2 + 5 * 2", "(2 + [5 * 2])", "(2 + [5 * |2|])"},
		{"pending", "2 +", "(2 + _)", "(2 + |_|)"},
		{"call", "pow 2 -> abs -4", "pow(2, abs[-4])", "pow(2, abs[|-4|])"},
		{"prefix", "5 ^ 3", "(5 ^ 3)", "(5 ^ |3|)"},
		{"prefix-none", "3 cbe", "(3 cbe)", "|(3 cbe)|"},
		{"variable", "#var:y * 2", "(y * 2)", "(y * |2|)"},
	}
	reg := DefaultRegistry()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			p := parse(t, reg, c.src)
			assert.Equal(t, c.tree, p.Root().String())
			assert.Equal(t, c.edit, p.String())
		})
	}
}

func TestParseMalformedNumber(t *testing.T) {
	p := NewParser(DefaultRegistry())
	for _, tok := range []string{"0", ".", "4"} {
		require.NoError(t, p.Parse(tok))
	}
	var ierr *InsertionError
	require.ErrorAs(t, p.Parse("."), &ierr)
	assert.Equal(t, "malformed number", ierr.Reason)
	assert.Equal(t, "0.4", p.Cursor().Value().Text())
	r, err := p.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, 0.4, r.Number())
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		src  string
		tok  string
		// check reports whether err has the expected type.
		check func(error) bool
	}{
		{"priority-on-empty", "", "+", isInsertion},
		{"priority-after-priority", "2 +", "*", isInsertion},
		{"call-on-operand", "2", "pow", isInsertion},
		{"prefix-at-root", "2 + 3 ->", "sqr", isInsertion},
		{"sign-on-placeholder", "", "+-", isInsertion},
		{"sign-on-operator", "2 sqr", "+-", isInsertion},
		{"number-on-operand", "2 sqr", "3", isInsertion},
		{"lone-point", "", ".", isInsertion},
		{"unknown", "", "frobnicate", isUnknown},
		{"unknown-args", "", "frob:1:2", isUnknown},
		{"bad-seed", "", "#number:x", isInsertion},
		{"advance-from-root", "2 ->", "->", isAdvance},
		{"wrap-root", "2 -> ", "^", isInsertion},
		{"priority-at-root", "2 ->", "+", isInsertion},
	}
	reg := DefaultRegistry()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			p := parse(t, reg, c.src)
			before, cursor := p.String(), p.Cursor()
			encoded, err := Encode(p.Root())
			require.NoError(t, err)
			err = p.Parse(c.tok)
			require.Error(t, err)
			assert.True(t, c.check(err), "wrong error type %T: %v", err, err)
			assert.Equal(t, before, p.String())
			assert.Same(t, cursor, p.Cursor())
			after, err := Encode(p.Root())
			require.NoError(t, err)
			assert.JSONEq(t, string(encoded), string(after))
		})
	}
}

func TestParseAdvance(t *testing.T) {
	p := parse(t, DefaultRegistry(), "pow 2")
	pow := p.Root().Child(0)
	require.NoError(t, p.Parse(TokenNext))
	assert.Same(t, pow.Child(1), p.Cursor())
	require.NoError(t, p.Parse("3"))
	require.NoError(t, p.Parse(TokenNext))
	assert.Same(t, pow, p.Cursor())
	require.NoError(t, p.Parse(TokenNext))
	assert.Same(t, p.Root(), p.Cursor())
}

func TestParseCursorOnNewLiteral(t *testing.T) {
	p := parse(t, DefaultRegistry(), "2 + 4")
	require.Equal(t, KindNumber, p.Cursor().Value().Kind())
	require.NoError(t, p.Parse("6"))
	assert.Equal(t, "46", p.Cursor().Value().Text())
}

func TestParseVariableName(t *testing.T) {
	reg := DefaultRegistry()
	p := parse(t, reg, "#var:y")
	assert.Same(t, reg, p.Registry())
	assert.Equal(t, "y", p.Cursor().Value().VarName())
	p = parse(t, reg, "#var")
	assert.Equal(t, "x", p.Cursor().Value().VarName())
	p = parse(t, reg, "pi")
	assert.Equal(t, "", p.Cursor().Value().VarName())
}

func TestParseLoadFloat(t *testing.T) {
	cases := []struct {
		name string
		x    float64
		text string
		more string
		want float64
	}{
		{"product", -2.5, "-2.5", "* 4", -10},
		{"digits", 2, "2", "5", 25},
		{"sum", 0.125, "0.125", "+ 1", 1.125},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			v := Float(c.x)
			assert.Equal(t, c.text, v.Text())
			p := NewParser(DefaultRegistry())
			p.Load(NewNode(v))
			require.NoError(t, p.ParseAll(strings.Fields(c.more)))
			r, err := p.Evaluate()
			require.NoError(t, err)
			assert.Equal(t, c.want, r.Number())
		})
	}
}

func TestParseReset(t *testing.T) {
	p := parse(t, DefaultRegistry(), "2 + 2")
	p.Reset()
	assert.Equal(t, "|_|", p.String())
	_, err := p.Evaluate()
	var merr *MissingArgumentError
	assert.ErrorAs(t, err, &merr)
}

func TestParseLoad(t *testing.T) {
	reg := DefaultRegistry()
	cases := []struct {
		name string
		src  string
		more string
		want float64
	}{
		{"placeholder", "pow 2", "5", 32},
		{"finished", "2 + 3", "6", 38},
		{"bare", "", "4", 4},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			b, err := Encode(parse(t, reg, c.src).Root())
			require.NoError(t, err)
			tree, err := reg.Decode(b)
			require.NoError(t, err)
			p := NewParser(reg)
			p.Load(tree)
			require.NoError(t, p.ParseAll(strings.Fields(c.more)))
			r, err := p.Evaluate()
			require.NoError(t, err)
			assert.Equal(t, c.want, r.Number())
		})
	}
}

func TestParseLoadWraps(t *testing.T) {
	reg := DefaultRegistry()
	tree, err := reg.Decode([]byte(`{"type":"+","children":[1,2]}`))
	require.NoError(t, err)
	p := NewParser(reg)
	p.Load(tree)
	assert.Equal(t, RootName, p.Root().Value().Name())
	require.NoError(t, p.ParseAll([]string{"*", "5"}))
	r, err := p.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, 11.0, r.Number())
}

func isInsertion(err error) bool {
	var e *InsertionError
	return errors.As(err, &e)
}

func isUnknown(err error) bool {
	var e *UnknownOperationError
	return errors.As(err, &e)
}

func isAdvance(err error) bool {
	var e *AdvanceError
	return errors.As(err, &e)
}

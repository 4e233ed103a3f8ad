package keycalc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", `{"type":"#expr","children":["#empty"]}`},
		{"number", "2 . 5 +-", `{"type":"#expr","children":[-2.5]}`},
		{"nested", "2 + 4 * abs 3", `{"type":"#expr","children":[{"type":"+","children":[2,{"type":"*","children":[4,{"type":"abs","children":[3]}]}]}]}`},
		{"variable", "#var:y ^ 2", `{"type":"#expr","children":[{"type":"^","children":["#var:y",2]}]}`},
		{"constant", "pi * #empty", `{"type":"#expr","children":[{"type":"*","children":["pi","#empty"]}]}`},
		{"huge", "1e999", `{"type":"#expr","children":["#number:1e999"]}`},
	}
	reg := DefaultRegistry()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			b, err := Encode(parse(t, reg, c.src).Root())
			require.NoError(t, err)
			var got, want any
			require.NoError(t, json.Unmarshal(b, &got))
			require.NoError(t, json.Unmarshal([]byte(c.want), &want))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("wrong encoding (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	reg := DefaultRegistry()
	defineSum(t, reg)
	cases := []string{
		"7",
		"1 + 2 + 3",
		"2 + 5 * 2 * 1.5 + 1 + 1",
		"pow 2 -> abs -4 + 2 + 0 -> * 1.5",
		"3 cbe - 2",
		"2 + 4 6 . 5 +-",
		"sum 1 -> 2 -> + 2",
		"#var:q * pi",
		"pow 2",
	}
	for _, src := range cases {
		src := src
		t.Run(src, func(t *testing.T) {
			tree := parse(t, reg, src).Root()
			b, err := Encode(tree)
			require.NoError(t, err)
			dec, err := reg.Decode(b)
			require.NoError(t, err)
			again, err := Encode(dec)
			require.NoError(t, err)
			assert.Equal(t, string(b), string(again))
			assert.Equal(t, tree.String(), dec.String())
			want, werr := tree.Evaluate()
			got, gerr := dec.Evaluate()
			assert.Equal(t, werr == nil, gerr == nil)
			if werr == nil {
				assert.Equal(t, want.String(), got.String())
			}
			dec.Walk(func(n *Node) bool {
				for _, c := range n.children {
					assert.Same(t, n, c.parent)
				}
				return true
			})
		})
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tree", `{"type":"#expr","children":[{"type":"+","children":[2,{"type":"*","children":[4,{"type":"abs","children":[3]}]}]}]}`, "14"},
		{"scalar", `2.5`, "2.5"},
		{"constant", `"pi"`, "3.141592653589793"},
		{"variable", `"#var:k"`, "f(k)"},
		{"seeded", `"#number:-4"`, "-4"},
		{"number-value", `{"type":"#number","value":12.5}`, "12.5"},
		{"number-text", `{"type":"#number","value":"1e2"}`, "100"},
		{"variable-value", `{"type":"#var","value":"w"}`, "f(w)"},
		{"constant-value", `{"type":"pi","value":3}`, "3"},
		{"childless", `{"type":"pow"}`, ""},
	}
	reg := DefaultRegistry()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			n, err := reg.Decode([]byte(c.in))
			require.NoError(t, err)
			r, err := n.Evaluate()
			if c.want == "" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, r.String())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		// path is the location a DecodeError reports, or "-" if the error is
		// an UnknownOperationError.
		path string
	}{
		{"invalid", `{"type":`, ""},
		{"no-type", `{"children":[]}`, ""},
		{"type-number", `{"type":1}`, ""},
		{"array", `[1,2]`, ""},
		{"bool", `true`, ""},
		{"children-object", `{"type":"+","children":{}}`, "children"},
		{"leaf-children", `{"type":"pi","children":[1]}`, "children"},
		{"deep-error", `{"type":"+","children":[1,{"type":"abs","children":[null]}]}`, "children.1.children.0"},
		{"bad-value", `{"type":"#var","value":3}`, "value"},
		{"no-value", `{"type":"+","value":3}`, "value"},
		{"unknown", `{"type":"frob","children":[1]}`, "-"},
		{"unknown-scalar", `{"type":"+","children":["frob"]}`, "-"},
	}
	reg := DefaultRegistry()
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			n, err := reg.Decode([]byte(c.in))
			require.Error(t, err)
			assert.Nil(t, n)
			if c.path == "-" {
				var uerr *UnknownOperationError
				require.ErrorAs(t, err, &uerr)
				assert.Equal(t, "frob", uerr.Name)
				return
			}
			var derr *DecodeError
			require.True(t, errors.As(err, &derr), "wrong error %T: %v", err, err)
			assert.Equal(t, c.path, derr.Path)
		})
	}
}

func TestDecodeDepth(t *testing.T) {
	nest := func(k int) string {
		return strings.Repeat(`{"type":"abs","children":[`, k) + "1" + strings.Repeat(`]}`, k)
	}
	reg := DefaultRegistry()
	n, err := reg.Decode([]byte(nest(MaxDecodeDepth)))
	require.NoError(t, err)
	r, err := n.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Number())
	_, err = reg.Decode([]byte(nest(MaxDecodeDepth + 1)))
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

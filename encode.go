package keycalc

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// MaxDecodeDepth is the deepest nesting Decode accepts.
const MaxDecodeDepth = 512

// record is the serialized form of a node with children.
type record struct {
	Type     string `json:"type"`
	Children []any  `json:"children"`
}

// MarshalJSON encodes the tree rooted at n. A node without children is a
// scalar: a number literal is a JSON number, a variable is "#var:" followed by
// its name, and anything else is its registered name. A node with children is
// an object {"type": name, "children": [...]}.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.record())
}

// Encode is a shortcut for n.MarshalJSON.
func Encode(n *Node) ([]byte, error) {
	return n.MarshalJSON()
}

func (n *Node) record() any {
	if len(n.children) == 0 {
		return n.value.scalar()
	}
	r := record{Type: n.value.name, Children: make([]any, len(n.children))}
	for i, c := range n.children {
		r.Children[i] = c.record()
	}
	return r
}

func (v Value) scalar() any {
	switch v.kind {
	case KindNumber:
		x := v.Number()
		if math.IsInf(x, 0) || math.IsNaN(x) {
			// JSON has no spelling for these, so keep the digits.
			return NumberName + ArgSep + v.Text()
		}
		return x
	case KindVariable:
		return VariableName + ArgSep + v.arg
	default:
		return v.name
	}
}

// Decode reads a tree in the form MarshalJSON writes, resolving names through
// r. An object may also have a "value" field, which sets the digits of a
// number literal, the name of a variable, or the value of a constant.
func (r *Registry) Decode(data []byte) (*Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, &DecodeError{Reason: "invalid JSON"}
	}
	return r.decode(gjson.ParseBytes(data), "", 0)
}

func (r *Registry) decode(v gjson.Result, path string, depth int) (*Node, error) {
	if depth > MaxDecodeDepth {
		return nil, &DecodeError{Path: path, Reason: "nested deeper than " + strconv.Itoa(MaxDecodeDepth)}
	}
	switch {
	case v.Type == gjson.Number:
		x, err := Literal(v.Raw)
		if err != nil {
			return nil, &DecodeError{Path: path, Reason: "malformed number " + strconv.Quote(v.Raw)}
		}
		return NewNode(x), nil
	case v.Type == gjson.String:
		name, args := splitToken(v.Str)
		x, err := r.resolve(name, args)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s", where(path))
		}
		return NewNode(x), nil
	case v.IsObject():
		return r.decodeObject(v, path, depth)
	default:
		return nil, &DecodeError{Path: path, Reason: "expected an object, number, or string but have " + v.Type.String()}
	}
}

func (r *Registry) decodeObject(v gjson.Result, path string, depth int) (*Node, error) {
	typ := v.Get("type")
	if typ.Type != gjson.String {
		return nil, &DecodeError{Path: path, Reason: "missing type"}
	}
	name, args := splitToken(typ.Str)
	x, err := r.resolve(name, args)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", where(path))
	}
	if val := v.Get("value"); val.Exists() {
		if err := x.setValue(val); err != nil {
			return nil, &DecodeError{Path: join(path, "value"), Reason: err.Error()}
		}
	}
	n := NewNode(x)
	children := v.Get("children")
	if !children.Exists() {
		return n, nil
	}
	if !children.IsArray() {
		return nil, &DecodeError{Path: join(path, "children"), Reason: "expected an array"}
	}
	list := children.Array()
	if len(list) > 0 && !x.Arity().slots() {
		return nil, &DecodeError{Path: join(path, "children"), Reason: strconv.Quote(name) + " takes no arguments"}
	}
	n.children = make([]*Node, 0, len(list))
	for i, c := range list {
		child, err := r.decode(c, join(join(path, "children"), strconv.Itoa(i)), depth+1)
		if err != nil {
			return nil, err
		}
		child.parent = n
		n.children = append(n.children, child)
	}
	return n, nil
}

// setValue applies the "value" field of a serialized node.
func (v *Value) setValue(val gjson.Result) error {
	switch v.kind {
	case KindNumber:
		s := val.Raw
		if val.Type == gjson.String {
			s = val.Str
		}
		x, err := Literal(s)
		if err != nil {
			return err
		}
		v.digits, v.neg = x.digits, x.neg
	case KindVariable:
		if val.Type != gjson.String || val.Str == "" || strings.Contains(val.Str, ArgSep) {
			return errors.New("variable name must be a non-empty string without " + strconv.Quote(ArgSep))
		}
		v.arg = val.Str
	case KindConstant:
		if val.Type != gjson.Number {
			return errors.New("constant value must be a number")
		}
		v.x = val.Num
	default:
		return errors.Errorf("%q has no value", v.name)
	}
	return nil
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

func where(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

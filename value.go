package keycalc

import (
	"math"
	"strconv"
	"strings"
)

// Reserved names of the values every registry carries.
const (
	// RootName is the top-level container holding a whole expression.
	RootName = "#expr"
	// PlaceholderName is an empty argument slot.
	PlaceholderName = "#empty"
	// VariableName is a free variable. Its name is the token argument, as in
	// "#var:y".
	VariableName = "#var"
	// NumberName is a number literal. A token argument seeds its digits, as in
	// "#number:2.5".
	NumberName = "#number"
)

// ArgSep separates a token or encoded name from its arguments.
const ArgSep = ":"

// Kind is the variant of a Value.
type Kind int8

const (
	KindPlaceholder Kind = iota
	KindNumber
	KindConstant
	KindVariable
	KindOperator
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindPlaceholder:
		return "Placeholder"
	case KindNumber:
		return "Number"
	case KindConstant:
		return "Constant"
	case KindVariable:
		return "Variable"
	case KindOperator:
		return "Operator"
	case KindUser:
		return "User"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Reducer computes an operator's result from its evaluated arguments, given in
// child order.
type Reducer func(args []float64) float64

// Builtin describes a built-in operator.
type Builtin struct {
	// Arity is the declared arity of the operator.
	Arity Arity
	// Reduce computes the result. The number of arguments always agrees with
	// Arity.
	Reduce Reducer
	// ArgName names the argument at a 0-based index, or returns "" if there is
	// none. If nil, arguments are named arg1, arg2, and so on.
	ArgName func(i int) string
}

// Value is the payload of a tree node. Values are small and copied freely;
// copies of a user-defined operator share its template.
type Value struct {
	kind Kind
	// name is the registered name.
	name string
	// arg is a variable's name.
	arg string
	// digits and neg hold a number literal as it was typed, without its sign.
	digits string
	neg    bool
	// x is a constant's value.
	x    float64
	op   *Builtin
	user *UserFunc
}

// Placeholder returns an empty argument slot.
func Placeholder() Value {
	return Value{kind: KindPlaceholder, name: PlaceholderName}
}

// Literal returns a number literal from its decimal text, e.g. "-2.5" or "1e3".
func Literal(s string) (Value, error) {
	neg, digits := splitSign(s)
	if !validLiteral(digits) {
		return Value{}, &InsertionError{Token: s, Reason: "malformed number"}
	}
	return Value{kind: KindNumber, name: NumberName, digits: digits, neg: neg}, nil
}

// Float returns a number literal holding x.
func Float(x float64) Value {
	neg, digits := splitSign(strconv.FormatFloat(x, 'g', -1, 64))
	return Value{kind: KindNumber, name: NumberName, digits: digits, neg: neg}
}

// Constant returns a named constant.
func Constant(name string, x float64) Value {
	return Value{kind: KindConstant, name: name, x: x}
}

// Variable returns a free variable.
func Variable(name string) Value {
	return Value{kind: KindVariable, name: VariableName, arg: name}
}

// Operator returns a built-in operator.
func Operator(name string, b Builtin) Value {
	return Value{kind: KindOperator, name: name, op: &b}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Name returns the registered name of v.
func (v Value) Name() string {
	return v.name
}

// VarName returns the name of a variable, or "" if v is not a variable.
func (v Value) VarName() string {
	return v.arg
}

// Arity returns the arity of v.
func (v Value) Arity() Arity {
	switch v.kind {
	case KindOperator:
		return v.op.Arity
	case KindUser:
		return v.user.arity
	default:
		return Arguments(0)
	}
}

// ArgName returns the name of v's argument at index i, or "" if there is none.
func (v Value) ArgName(i int) string {
	switch v.kind {
	case KindOperator:
		if v.op.ArgName != nil {
			return v.op.ArgName(i)
		}
		return "arg" + strconv.Itoa(i+1)
	case KindUser:
		if i < 0 || i >= len(v.user.names) {
			return ""
		}
		return v.user.names[i]
	default:
		return ""
	}
}

// Number returns the value of a number literal or constant. For any other
// kind, the result is NaN.
func (v Value) Number() float64 {
	switch v.kind {
	case KindNumber:
		x, err := strconv.ParseFloat(v.digits, 64)
		if err != nil && !isRange(err) {
			return math.NaN()
		}
		if v.neg {
			x = -x
		}
		return x
	case KindConstant:
		return v.x
	default:
		return math.NaN()
	}
}

// Text returns the digits of a number literal as typed, including its sign.
func (v Value) Text() string {
	if v.neg {
		return "-" + v.digits
	}
	return v.digits
}

// configure applies token arguments to a fresh copy of a prototype.
func (v *Value) configure(args []string) error {
	switch v.kind {
	case KindVariable:
		switch {
		case len(args) > 0 && args[0] != "":
			v.arg = args[0]
		case v.arg == "":
			v.arg = "x"
		}
	case KindNumber:
		if len(args) == 0 {
			if v.digits == "" {
				v.digits = "0"
			}
			return nil
		}
		n, err := Literal(args[0])
		if err != nil {
			return err
		}
		v.digits, v.neg = n.digits, n.neg
	}
	return nil
}

// appendDigits returns the literal with s typed after its digits. The result
// is false if that would not be a valid number.
func (v Value) appendDigits(s string) (Value, bool) {
	if v.kind != KindNumber {
		return v, false
	}
	d := v.digits + s
	if !validLiteral(d) {
		return v, false
	}
	v.digits = d
	return v, true
}

func (v Value) String() string {
	switch v.kind {
	case KindPlaceholder:
		return "_"
	case KindNumber:
		return v.Text()
	case KindVariable:
		return v.arg
	default:
		return v.name
	}
}

// splitToken separates a token's name from its arguments.
func splitToken(tok string) (name string, args []string) {
	name, rest, ok := strings.Cut(tok, ArgSep)
	if !ok || rest == "" {
		return name, nil
	}
	return name, strings.Split(rest, ArgSep)
}

// splitSign separates a leading sign from a number's text.
func splitSign(s string) (neg bool, rest string) {
	if s == "" {
		return false, s
	}
	switch s[0] {
	case '-':
		return true, s[1:]
	case '+':
		return false, s[1:]
	}
	return false, s
}

// validLiteral reports whether s is an unsigned decimal literal: digits with
// at most one point and at least one digit, optionally followed by an
// exponent. "46." is valid so that a point can be typed before the fraction.
func validLiteral(s string) bool {
	var dig, dot bool
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case '0' <= c && c <= '9':
			dig = true
		case c == '.':
			if dot {
				return false
			}
			dot = true
		case c == 'e', c == 'E':
			return dig && validExponent(s[i+1:])
		default:
			return false
		}
	}
	return dig
}

func validExponent(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// numeric reports whether a token should be handled as number entry rather
// than looked up as an operator.
func numeric(tok string) bool {
	if _, digits := splitSign(tok); validLiteral(digits) {
		return true
	}
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if c := tok[i]; c != '.' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func isRange(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

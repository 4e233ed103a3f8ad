package keycalc

import "strconv"

// Class is the structural shape a value imposes on its children, and so how
// the parser places it.
type Class int8

const (
	// ClassArguments is a prefix call, op(arg1, arg2, ...).
	ClassArguments Class = iota
	// ClassPrefix takes one leading operand before the operator, then Count
	// more arguments after it, as in 5 ^ 3.
	ClassPrefix
	// ClassPriority is a flat infix operator, as in 1 + 2 + 3. Level decides
	// how tightly it binds.
	ClassPriority
)

// Count is a number of arguments. Besides fixed non-negative counts, it may be
// ZeroOrMore or OneOrMore.
type Count int

const (
	ZeroOrMore Count = -1
	OneOrMore  Count = -2
)

// Arity is the arity class of a value together with its argument count or
// priority level.
type Arity struct {
	Class Class
	// Count is the argument count for ClassArguments and the number of
	// arguments after the leading operand for ClassPrefix.
	Count Count
	// Level is the binding strength of a ClassPriority operator. Higher binds
	// tighter.
	Level uint
}

// Arguments returns the arity of an operator called with n arguments.
func Arguments(n Count) Arity {
	return Arity{Class: ClassArguments, Count: n}
}

// PrefixArgument returns the arity of an operator with one leading operand
// followed by n more arguments.
func PrefixArgument(n Count) Arity {
	return Arity{Class: ClassPrefix, Count: n}
}

// Priority returns the arity of a flat infix operator at a level.
func Priority(level uint) Arity {
	return Arity{Class: ClassPriority, Level: level}
}

// slots reports whether nodes with this arity hold children at all.
func (a Arity) slots() bool {
	return a.Class != ClassArguments || a.Count != 0
}

// accepts reports whether n realized children agree with the arity.
func (a Arity) accepts(n int) bool {
	switch a.Class {
	case ClassArguments:
		return a.Count.accepts(n)
	case ClassPrefix:
		return n >= 1 && a.Count.accepts(n-1)
	case ClassPriority:
		return n >= 1
	default:
		return false
	}
}

// fresh is the number of placeholders a new node gets when it replaces a
// placeholder.
func (a Arity) fresh() int {
	switch a.Class {
	case ClassArguments:
		return a.Count.least()
	case ClassPrefix:
		return a.Count.least() + 1
	default:
		return 0
	}
}

func (c Count) accepts(n int) bool {
	switch c {
	case ZeroOrMore:
		return n >= 0
	case OneOrMore:
		return n >= 1
	default:
		return n == int(c)
	}
}

// least is the smallest number of arguments c allows.
func (c Count) least() int {
	switch c {
	case ZeroOrMore:
		return 0
	case OneOrMore:
		return 1
	default:
		return int(c)
	}
}

func (c Count) String() string {
	switch c {
	case ZeroOrMore:
		return "zero-or-more"
	case OneOrMore:
		return "one-or-more"
	default:
		return strconv.Itoa(int(c))
	}
}

func (a Arity) String() string {
	switch a.Class {
	case ClassArguments:
		return "arguments(" + a.Count.String() + ")"
	case ClassPrefix:
		return "prefixArgument(" + a.Count.String() + ")"
	case ClassPriority:
		return "priority(" + strconv.FormatUint(uint64(a.Level), 10) + ")"
	default:
		return "invalid(" + strconv.Itoa(int(a.Class)) + ")"
	}
}

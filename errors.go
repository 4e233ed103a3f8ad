package keycalc

import (
	"strconv"
	"strings"
)

// MissingArgumentError is an error evaluating a node whose arguments are not
// all there: a placeholder, an operator whose child count disagrees with its
// arity, or a user-defined operator whose template's variables do not match
// its argument map.
type MissingArgumentError struct {
	// Node is the node that failed, if any.
	Node *Node
	// Reason describes what is missing.
	Reason string
}

func (err *MissingArgumentError) Error() string {
	msg := "missing argument"
	if err.Reason != "" {
		msg += ": " + err.Reason
	}
	if err.Node != nil {
		msg += " at " + strconv.Quote(err.Node.value.String())
	}
	return msg
}

// AdvanceError is an error moving the cursor to the next argument slot.
type AdvanceError struct {
	// Node is the node asked for its next slot, or the cursor if it has no
	// parent.
	Node *Node
	// After is the node the next slot was asked after.
	After *Node
}

func (err *AdvanceError) Error() string {
	if err.After == nil || err.Node == nil {
		return "cannot advance: cursor has no parent"
	}
	return "cannot advance: " + strconv.Quote(err.After.value.String()) + " is neither a child nor the parent of " + strconv.Quote(err.Node.value.String())
}

// InsertionError is an error placing a token into the tree. The tree is
// unchanged when a Parser returns an InsertionError.
type InsertionError struct {
	// Token is the token that could not be placed.
	Token string
	// Node is the cursor at the time, if any.
	Node *Node
	// Reason describes the rule that was violated.
	Reason string
}

func (err *InsertionError) Error() string {
	msg := "cannot insert " + strconv.Quote(err.Token)
	if err.Node != nil {
		msg += " at " + strconv.Quote(err.Node.value.String())
	}
	if err.Reason != "" {
		msg += ": " + err.Reason
	}
	return msg
}

// UnknownOperationError is an error resolving a name that is not in the
// registry.
type UnknownOperationError struct {
	// Name is the name that was not found.
	Name string
	// Args are the arguments that accompanied the name.
	Args []string
}

func (err *UnknownOperationError) Error() string {
	name := err.Name
	if len(err.Args) > 0 {
		name += ArgSep + strings.Join(err.Args, ArgSep)
	}
	return "unknown operation " + strconv.Quote(name)
}

// DecodeError is an error reading the serialized form of a tree.
type DecodeError struct {
	// Path locates the offending element, e.g. "children.1.children.0".
	Path string
	// Reason describes the problem.
	Reason string
}

func (err *DecodeError) Error() string {
	if err.Path == "" {
		return "decode: " + err.Reason
	}
	return "decode " + err.Path + ": " + err.Reason
}

// Package keycalc builds and evaluates arithmetic expression trees one token at
// a time, the way a calculator keypad produces them.
//
// A Parser consumes tokens like "2", "+", "5", "*", "pi" and keeps the tree in
// a valid, possibly incomplete state after every token. Unfilled argument slots
// are placeholders. "->" moves the cursor to the next argument slot and "+-"
// flips the sign of the number being typed. Operators come from a Registry, so
// a calculator can carry its own operator set and user-defined functions built
// from earlier trees.
//
// Operators have one of three arity classes. Priority operators like + and *
// are flat: "1 + 2 + 3" is a single node with three operands. Argument
// operators like pow(2, 3) take their arguments after the name. Prefix-argument
// operators like "5 ^ 3" take one operand before the name and the rest after.
//
// Trees evaluate to either a number or the set of variables they still depend
// on, and they encode to a JSON form that Registry.Decode reads back.
package keycalc

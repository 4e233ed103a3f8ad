package keycalc

import (
	"math"
	"strconv"
)

var defaultOperators = map[string]Builtin{
	"+": {Arity: Priority(10), Reduce: Fold(func(x, y float64) float64 { return x + y }), ArgName: numbered("summand")},
	"-": {Arity: Priority(20), Reduce: Fold(func(x, y float64) float64 { return x - y }), ArgName: named("minuend", "subtrahend")},
	"*": {Arity: Priority(40), Reduce: Fold(func(x, y float64) float64 { return x * y }), ArgName: numbered("factor")},
	"/": {Arity: Priority(50), Reduce: Fold(Quo), ArgName: named("dividend", "divisor")},

	"^":   {Arity: PrefixArgument(1), Reduce: Dyadic(math.Pow), ArgName: named("base", "exponent")},
	"sqr": {Arity: PrefixArgument(0), Reduce: Monadic(func(x float64) float64 { return x * x })},
	"cbe": {Arity: PrefixArgument(0), Reduce: Monadic(func(x float64) float64 { return x * x * x })},

	"abs":   {Arity: Arguments(1), Reduce: Monadic(math.Abs)},
	"neg":   {Arity: Arguments(1), Reduce: Monadic(func(x float64) float64 { return -x })},
	"pow":   {Arity: Arguments(2), Reduce: Dyadic(math.Pow), ArgName: named("base", "exponent")},
	"sqrt":  {Arity: Arguments(1), Reduce: Monadic(math.Sqrt)},
	"cbrt":  {Arity: Arguments(1), Reduce: Monadic(math.Cbrt)},
	"exp":   {Arity: Arguments(1), Reduce: Monadic(math.Exp)},
	"ln":    {Arity: Arguments(1), Reduce: Monadic(math.Log)},
	"log":   {Arity: Arguments(2), Reduce: Dyadic(Log), ArgName: named("x", "base")},
	"sin":   {Arity: Arguments(1), Reduce: Monadic(math.Sin)},
	"cos":   {Arity: Arguments(1), Reduce: Monadic(math.Cos)},
	"tan":   {Arity: Arguments(1), Reduce: Monadic(math.Tan)},
	"asin":  {Arity: Arguments(1), Reduce: Monadic(math.Asin)},
	"acos":  {Arity: Arguments(1), Reduce: Monadic(math.Acos)},
	"atan":  {Arity: Arguments(1), Reduce: Monadic(math.Atan)},
	"atan2": {Arity: Arguments(2), Reduce: Dyadic(math.Atan2), ArgName: named("y", "x")},

	"min": {Arity: Arguments(OneOrMore), Reduce: Fold(math.Min)},
	"max": {Arity: Arguments(OneOrMore), Reduce: Fold(math.Max)},
	"sum": {Arity: Arguments(ZeroOrMore), Reduce: func(args []float64) float64 {
		var r float64
		for _, x := range args {
			r += x
		}
		return r
	}},
}

var defaultConstants = map[string]float64{
	"pi":  math.Pi,
	"tau": 2 * math.Pi,
	"e":   math.E,
}

// Monadic wraps a function of one variable into a Reducer.
func Monadic(f func(float64) float64) Reducer {
	return func(args []float64) float64 {
		return f(args[0])
	}
}

// Dyadic wraps a function of two variables into a Reducer.
func Dyadic(f func(x, y float64) float64) Reducer {
	return func(args []float64) float64 {
		return f(args[0], args[1])
	}
}

// Fold wraps a binary function into a Reducer that combines any positive
// number of arguments from left to right.
func Fold(f func(acc, x float64) float64) Reducer {
	return func(args []float64) float64 {
		r := args[0]
		for _, x := range args[1:] {
			r = f(r, x)
		}
		return r
	}
}

// Quo returns x/y, or NaN if y is exactly zero.
func Quo(x, y float64) float64 {
	if y == 0 {
		return math.NaN()
	}
	return x / y
}

// Log returns the logarithm of x in base b. The result is NaN if the natural
// logarithm of b is zero or not finite.
func Log(x, b float64) float64 {
	lb := math.Log(b)
	if lb == 0 || math.IsInf(lb, 0) || math.IsNaN(lb) {
		return math.NaN()
	}
	return math.Log(x) / lb
}

// numbered names arguments with a prefix and a 1-based index.
func numbered(prefix string) func(int) string {
	return func(i int) string {
		return prefix + strconv.Itoa(i+1)
	}
}

// named names a fixed list of arguments.
func named(names ...string) func(int) string {
	return func(i int) string {
		if i < 0 || i >= len(names) {
			return ""
		}
		return names[i]
	}
}

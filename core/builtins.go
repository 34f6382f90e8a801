package clj

import (
	"fmt"
	"math"
	"strings"
)

// CoreBuiltins returns the host functions installed in every root frame.
// Functions that call back into user code close over ev.
func CoreBuiltins(ev *Evaluator) map[string]Builtin {
	return map[string]Builtin{
		// Arithmetic
		"+": builtinAdd,
		"-": builtinSub,
		"*": builtinMul,
		"/": builtinDiv,
		// Comparison
		"=":   builtinEq,
		"<":   compareChain("<", func(c int) bool { return c < 0 }),
		"<=":  compareChain("<=", func(c int) bool { return c <= 0 }),
		">":   compareChain(">", func(c int) bool { return c > 0 }),
		">=":  compareChain(">=", func(c int) bool { return c >= 0 }),
		"not": builtinNot,
		// Sequences
		"list":   builtinList,
		"vector": builtinVector,
		"vec":    builtinVec,
		"first":  builtinFirst,
		"rest":   builtinRest,
		"cons":   builtinCons,
		"conj":   builtinConj,
		"count":  builtinCount,
		"nth":    builtinNth,
		// Maps
		"hash-map": builtinHashMap,
		"get":      builtinGet,
		"assoc":    builtinAssoc,
		"keys":     builtinKeys,
		// Predicates
		"symbol?":  kindPred("symbol?", ValSymbol),
		"keyword?": kindPred("keyword?", ValKeyword),
		"list?":    kindPred("list?", ValList),
		"vector?":  kindPred("vector?", ValVector),
		"map?":     kindPred("map?", ValMap),
		"nil?":     kindPred("nil?", ValNil),
		"string?":  kindPred("string?", ValString),
		"number?":  kindPred("number?", ValInt, ValFloat),
		"fn?":      kindPred("fn?", ValFn, ValHostFn),
		// Misc
		"str":   builtinStr,
		"type":  builtinType,
		"macro": builtinMacro,
		// Higher order
		"reduce": ev.builtinReduce,
		"apply":  ev.builtinApply,
		"map":    ev.builtinMap,
		"filter": ev.builtinFilter,
	}
}

// InstallBuiltins binds each builtin as a host function on frame.
func InstallBuiltins(frame *Frame, builtins map[string]Builtin) {
	for name, fn := range builtins {
		frame.define(name, HostVal(name, fn))
	}
}

func arity(name string, args []Value, want int) error {
	if len(args) != want {
		return &ArityMismatchError{Name: name, Want: want, Got: len(args)}
	}
	return nil
}

func minArity(name string, args []Value, want int) error {
	if len(args) < want {
		return &ArityMismatchError{Name: name, Want: want, Variadic: true, Got: len(args)}
	}
	return nil
}

// --- Arithmetic ---

// numericPair widens a and b to float64 unless both are Int.
func numericPair(name string, a, b Value) (int64, int64, float64, float64, bool, error) {
	if a.Kind == ValInt && b.Kind == ValInt {
		return a.Int, b.Int, 0, 0, false, nil
	}
	fa, err := toFloat(name, a)
	if err != nil {
		return 0, 0, 0, 0, false, err
	}
	fb, err := toFloat(name, b)
	if err != nil {
		return 0, 0, 0, 0, false, err
	}
	return 0, 0, fa, fb, true, nil
}

func toFloat(name string, v Value) (float64, error) {
	switch v.Kind {
	case ValInt:
		return float64(v.Int), nil
	case ValFloat:
		return v.Float, nil
	default:
		return 0, typeErrorf("%s: expected number, got %s", name, v.KindName())
	}
}

func arith(name string, acc Value, args []Value, intOp func(a, b int64) (int64, bool), floatOp func(a, b float64) float64) (Value, error) {
	for _, arg := range args {
		ai, bi, af, bf, isFloat, err := numericPair(name, acc, arg)
		if err != nil {
			return Value{}, err
		}
		if isFloat {
			acc = FloatVal(floatOp(af, bf))
		} else {
			n, ok := intOp(ai, bi)
			if !ok {
				return Value{}, fmt.Errorf("%s: integer overflow", name)
			}
			acc = IntVal(n)
		}
	}
	return acc, nil
}

// Int arithmetic reports false instead of wrapping.
func addInt(a, b int64) (int64, bool) {
	s := a + b
	return s, (s > a) == (b > 0)
}

func subInt(a, b int64) (int64, bool) {
	d := a - b
	return d, (d < a) == (b > 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || p/b != a {
		return p, false
	}
	return p, true
}

func builtinAdd(args []Value) (Value, error) {
	return arith("+", IntVal(0), args,
		addInt,
		func(a, b float64) float64 { return a + b })
}

func builtinMul(args []Value) (Value, error) {
	return arith("*", IntVal(1), args,
		mulInt,
		func(a, b float64) float64 { return a * b })
}

// builtinSub: (- x) negates, (- x y ...) subtracts from x, (-) is an error.
func builtinSub(args []Value) (Value, error) {
	if err := minArity("-", args, 1); err != nil {
		return Value{}, err
	}
	sub := func(acc Value, rest []Value) (Value, error) {
		return arith("-", acc, rest,
			subInt,
			func(a, b float64) float64 { return a - b })
	}
	if len(args) == 1 {
		return sub(IntVal(0), args)
	}
	if _, err := toFloat("-", args[0]); err != nil {
		return Value{}, err
	}
	return sub(args[0], args[1:])
}

// builtinDiv keeps Int results only when the division is exact.
func builtinDiv(args []Value) (Value, error) {
	if err := minArity("/", args, 1); err != nil {
		return Value{}, err
	}
	acc := args[0]
	rest := args[1:]
	if len(args) == 1 {
		acc, rest = IntVal(1), args
	}
	if _, err := toFloat("/", acc); err != nil {
		return Value{}, err
	}
	for _, arg := range rest {
		ai, bi, af, bf, isFloat, err := numericPair("/", acc, arg)
		if err != nil {
			return Value{}, err
		}
		if !isFloat {
			if bi == 0 {
				return Value{}, fmt.Errorf("/: division by zero")
			}
			if ai%bi == 0 {
				acc = IntVal(ai / bi)
				continue
			}
			af, bf = float64(ai), float64(bi)
		}
		if bf == 0 {
			return Value{}, fmt.Errorf("/: division by zero")
		}
		acc = FloatVal(af / bf)
	}
	return acc, nil
}

// --- Comparison ---

func builtinEq(args []Value) (Value, error) {
	if err := minArity("=", args, 1); err != nil {
		return Value{}, err
	}
	for _, a := range args[1:] {
		if !ValuesEqual(args[0], a) {
			return BoolVal(false), nil
		}
	}
	return BoolVal(true), nil
}

func compareNumbers(name string, a, b Value) (int, error) {
	ai, bi, af, bf, isFloat, err := numericPair(name, a, b)
	if err != nil {
		return 0, err
	}
	if !isFloat {
		switch {
		case ai < bi:
			return -1, nil
		case ai > bi:
			return 1, nil
		}
		return 0, nil
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// compareChain builds a variadic comparison that holds for every adjacent pair.
func compareChain(name string, ok func(int) bool) Builtin {
	return func(args []Value) (Value, error) {
		if err := minArity(name, args, 1); err != nil {
			return Value{}, err
		}
		if _, err := toFloat(name, args[0]); err != nil {
			return Value{}, err
		}
		result := true
		for i := 1; i < len(args); i++ {
			c, err := compareNumbers(name, args[i-1], args[i])
			if err != nil {
				return Value{}, err
			}
			if !ok(c) {
				result = false
			}
		}
		return BoolVal(result), nil
	}
}

func builtinNot(args []Value) (Value, error) {
	if err := arity("not", args, 1); err != nil {
		return Value{}, err
	}
	return BoolVal(!args[0].Truthy()), nil
}

// --- Sequences ---

func builtinList(args []Value) (Value, error) {
	return ListVal(args), nil
}

func builtinVector(args []Value) (Value, error) {
	return VectorVal(args), nil
}

// seqArg accepts a List, Vector or nil (the empty sequence).
func seqArg(name string, v Value) ([]Value, error) {
	switch {
	case v.Kind == ValNil:
		return nil, nil
	case v.IsSeq():
		return v.Elems(), nil
	default:
		return nil, typeErrorf("%s: expected List or Vector, got %s", name, v.KindName())
	}
}

func builtinVec(args []Value) (Value, error) {
	if err := arity("vec", args, 1); err != nil {
		return Value{}, err
	}
	elems, err := seqArg("vec", args[0])
	if err != nil {
		return Value{}, err
	}
	return VectorVal(elems), nil
}

func builtinFirst(args []Value) (Value, error) {
	if err := arity("first", args, 1); err != nil {
		return Value{}, err
	}
	elems, err := seqArg("first", args[0])
	if err != nil {
		return Value{}, err
	}
	if len(elems) == 0 {
		return NilVal(), nil
	}
	return elems[0], nil
}

func builtinRest(args []Value) (Value, error) {
	if err := arity("rest", args, 1); err != nil {
		return Value{}, err
	}
	elems, err := seqArg("rest", args[0])
	if err != nil {
		return Value{}, err
	}
	if len(elems) == 0 {
		return ListVal(nil), nil
	}
	return ListVal(elems[1:]), nil
}

func builtinCons(args []Value) (Value, error) {
	if err := arity("cons", args, 2); err != nil {
		return Value{}, err
	}
	elems, err := seqArg("cons", args[1])
	if err != nil {
		return Value{}, err
	}
	return ListVal(append([]Value{args[0]}, elems...)), nil
}

// builtinConj prepends to a List and appends to a Vector.
func builtinConj(args []Value) (Value, error) {
	if err := minArity("conj", args, 1); err != nil {
		return Value{}, err
	}
	coll := args[0]
	elems, err := seqArg("conj", coll)
	if err != nil {
		return Value{}, err
	}
	if coll.Kind == ValVector {
		out := make([]Value, 0, len(elems)+len(args)-1)
		out = append(out, elems...)
		out = append(out, args[1:]...)
		return VectorVal(out), nil
	}
	out := make([]Value, 0, len(elems)+len(args)-1)
	for i := len(args) - 1; i >= 1; i-- {
		out = append(out, args[i])
	}
	out = append(out, elems...)
	return ListVal(out), nil
}

func builtinCount(args []Value) (Value, error) {
	if err := arity("count", args, 1); err != nil {
		return Value{}, err
	}
	switch v := args[0]; v.Kind {
	case ValNil:
		return IntVal(0), nil
	case ValList, ValVector:
		return IntVal(int64(len(v.Elems()))), nil
	case ValMap:
		return IntVal(int64(v.Map.Len())), nil
	case ValString:
		return IntVal(int64(len([]rune(v.Str)))), nil
	default:
		return Value{}, typeErrorf("count: expected collection or String, got %s", v.KindName())
	}
}

// builtinNth: (nth coll i) or (nth coll i default).
func builtinNth(args []Value) (Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return Value{}, &ArityMismatchError{Name: "nth", Want: 2, Variadic: true, Got: len(args)}
	}
	elems, err := seqArg("nth", args[0])
	if err != nil {
		return Value{}, err
	}
	if args[1].Kind != ValInt {
		return Value{}, typeErrorf("nth: index must be Int, got %s", args[1].KindName())
	}
	i := args[1].Int
	if i < 0 || i >= int64(len(elems)) {
		if len(args) == 3 {
			return args[2], nil
		}
		return Value{}, fmt.Errorf("nth: index %d out of range for %d elements", i, len(elems))
	}
	return elems[i], nil
}

// --- Maps ---

func builtinHashMap(args []Value) (Value, error) {
	return NewMap(args...)
}

// builtinGet: (get coll key) or (get coll key default); Vectors index by Int.
func builtinGet(args []Value) (Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return Value{}, &ArityMismatchError{Name: "get", Want: 2, Variadic: true, Got: len(args)}
	}
	missing := NilVal()
	if len(args) == 3 {
		missing = args[2]
	}
	switch coll := args[0]; coll.Kind {
	case ValMap:
		if val, ok := coll.Map.Get(args[1]); ok {
			return val, nil
		}
	case ValVector:
		if args[1].Kind == ValInt && args[1].Int >= 0 && args[1].Int < int64(len(coll.Elems())) {
			return coll.Elems()[args[1].Int], nil
		}
	case ValNil:
	default:
		return Value{}, typeErrorf("get: expected Map or Vector, got %s", coll.KindName())
	}
	return missing, nil
}

func builtinAssoc(args []Value) (Value, error) {
	if err := minArity("assoc", args, 3); err != nil {
		return Value{}, err
	}
	if len(args)%2 != 1 {
		return Value{}, &ShapeError{Form: "assoc", Msg: "expected a map followed by key/value pairs"}
	}
	m := args[0]
	switch m.Kind {
	case ValNil:
		m, _ = NewMap()
	case ValMap:
	default:
		return Value{}, typeErrorf("assoc: expected Map, got %s", m.KindName())
	}
	for i := 1; i < len(args); i += 2 {
		m = m.Map.Assoc(args[i], args[i+1])
	}
	return m, nil
}

func builtinKeys(args []Value) (Value, error) {
	if err := arity("keys", args, 1); err != nil {
		return Value{}, err
	}
	if args[0].Kind != ValMap {
		return Value{}, typeErrorf("keys: expected Map, got %s", args[0].KindName())
	}
	return ListVal(args[0].Map.Keys()), nil
}

// --- Predicates and misc ---

func kindPred(name string, kinds ...ValueKind) Builtin {
	return func(args []Value) (Value, error) {
		if err := arity(name, args, 1); err != nil {
			return Value{}, err
		}
		for _, k := range kinds {
			if args[0].Kind == k {
				return BoolVal(true), nil
			}
		}
		return BoolVal(false), nil
	}
}

// builtinStr concatenates strings as-is and prints everything else; nil is "".
func builtinStr(args []Value) (Value, error) {
	var sb strings.Builder
	for _, a := range args {
		switch a.Kind {
		case ValString:
			sb.WriteString(a.Str)
		case ValNil:
		default:
			sb.WriteString(a.String())
		}
	}
	return StringVal(sb.String()), nil
}

func builtinType(args []Value) (Value, error) {
	if err := arity("type", args, 1); err != nil {
		return Value{}, err
	}
	return KeywordVal(strings.ToLower(args[0].KindName())), nil
}

// builtinMacro flags a user function as a macro. The returned value shares
// the function's params, body and closure.
func builtinMacro(args []Value) (Value, error) {
	if err := arity("macro", args, 1); err != nil {
		return Value{}, err
	}
	switch args[0].Kind {
	case ValMacro:
		return args[0], nil
	case ValFn:
		return MacroVal(args[0].Fn), nil
	default:
		return Value{}, typeErrorf("macro: expected Function, got %s", args[0].KindName())
	}
}

// --- Higher order ---

// builtinReduce: (reduce f coll) or (reduce f init coll).
func (e *Evaluator) builtinReduce(args []Value) (Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return Value{}, &ArityMismatchError{Name: "reduce", Want: 2, Variadic: true, Got: len(args)}
	}
	f := args[0]
	elems, err := seqArg("reduce", args[len(args)-1])
	if err != nil {
		return Value{}, err
	}
	var acc Value
	if len(args) == 3 {
		acc = args[1]
	} else {
		if len(elems) == 0 {
			return e.Apply(f, nil)
		}
		acc, elems = elems[0], elems[1:]
	}
	for _, item := range elems {
		acc, err = e.Apply(f, []Value{acc, item})
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}

// builtinApply: (apply f args...) where the last argument is a sequence.
func (e *Evaluator) builtinApply(args []Value) (Value, error) {
	if err := minArity("apply", args, 2); err != nil {
		return Value{}, err
	}
	tail, err := seqArg("apply", args[len(args)-1])
	if err != nil {
		return Value{}, err
	}
	callArgs := append(append([]Value{}, args[1:len(args)-1]...), tail...)
	return e.Apply(args[0], callArgs)
}

func (e *Evaluator) builtinMap(args []Value) (Value, error) {
	if err := arity("map", args, 2); err != nil {
		return Value{}, err
	}
	elems, err := seqArg("map", args[1])
	if err != nil {
		return Value{}, err
	}
	out := make([]Value, len(elems))
	for i, item := range elems {
		out[i], err = e.Apply(args[0], []Value{item})
		if err != nil {
			return Value{}, err
		}
	}
	return ListVal(out), nil
}

func (e *Evaluator) builtinFilter(args []Value) (Value, error) {
	if err := arity("filter", args, 2); err != nil {
		return Value{}, err
	}
	elems, err := seqArg("filter", args[1])
	if err != nil {
		return Value{}, err
	}
	out := []Value{}
	for _, item := range elems {
		keep, err := e.Apply(args[0], []Value{item})
		if err != nil {
			return Value{}, err
		}
		if keep.Truthy() {
			out = append(out, item)
		}
	}
	return ListVal(out), nil
}

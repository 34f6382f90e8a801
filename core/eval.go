package clj

// DefaultMaxDepth bounds evaluation nesting when Evaluator.MaxDepth is zero.
const DefaultMaxDepth = 10000

// Evaluator evaluates forms against a chain of frames. It is not safe for
// concurrent use; a Session serializes access to it.
type Evaluator struct {
	MaxDepth int
	depth    int
}

func (e *Evaluator) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

// Eval evaluates expr in env. Symbols are looked up, non-empty lists are
// special forms or calls, and everything else evaluates to itself.
func (e *Evaluator) Eval(expr Value, env *Frame) (Value, error) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.maxDepth() {
		return Value{}, &DepthError{Max: e.maxDepth()}
	}

	switch expr.Kind {
	case ValSymbol:
		val, ok := env.Lookup(expr.Str)
		if !ok {
			return Value{}, &UnboundSymbolError{Name: expr.Str}
		}
		return val, nil
	case ValList:
		return e.evalList(expr, env)
	default:
		return expr, nil
	}
}

func (e *Evaluator) evalList(form Value, env *Frame) (Value, error) {
	elems := form.Elems()
	if len(elems) == 0 {
		return form, nil
	}

	head := elems[0]
	rest := elems[1:]

	if head.Kind == ValSymbol {
		switch head.Str {
		case "quote":
			return e.evalQuote(rest)
		case "if":
			return e.evalIf(rest, env)
		case "def":
			return e.evalDef(rest, env)
		case "do":
			return e.evalDo(rest, env)
		case "let":
			return e.evalLet(rest, env)
		case "fn":
			return e.evalFn(rest, env)
		}
	}

	callee, err := e.Eval(head, env)
	if err != nil {
		return Value{}, err
	}
	if !callee.IsCallable() {
		if head.Kind == ValSymbol {
			return Value{}, typeErrorf("cannot call %s: %s is not a function", head.Str, callee.KindName())
		}
		return Value{}, typeErrorf("cannot call %s value", callee.KindName())
	}
	if callee.Kind == ValMacro {
		return e.evalMacroCall(callee.Fn, form, env)
	}
	args := make([]Value, len(rest))
	for i, argForm := range rest {
		val, err := e.Eval(argForm, env)
		if err != nil {
			return Value{}, err
		}
		args[i] = val
	}
	return e.Apply(callee, args)
}

// evalQuote: (quote form) returns form unevaluated.
func (e *Evaluator) evalQuote(rest []Value) (Value, error) {
	if err := checkQuote(rest); err != nil {
		return Value{}, err
	}
	return rest[0], nil
}

// evalIf: (if cond then else). Only the taken branch is evaluated.
func (e *Evaluator) evalIf(rest []Value, env *Frame) (Value, error) {
	if err := checkIf(rest); err != nil {
		return Value{}, err
	}
	cond, err := e.Eval(rest[0], env)
	if err != nil {
		return Value{}, err
	}
	if cond.Truthy() {
		return e.Eval(rest[1], env)
	}
	return e.Eval(rest[2], env)
}

// evalDef: (def name expr) evaluates expr in env and binds it on the root frame.
func (e *Evaluator) evalDef(rest []Value, env *Frame) (Value, error) {
	if err := checkDef(rest); err != nil {
		return Value{}, err
	}
	val, err := e.Eval(rest[1], env)
	if err != nil {
		return Value{}, err
	}
	// A function literal is fresh here, so naming it mutates nothing shared.
	if (val.Kind == ValFn || val.Kind == ValMacro) && val.Fn.Name == "" && isFnLiteral(rest[1]) {
		val.Fn.Name = rest[0].Str
	}
	env.define(rest[0].Str, val)
	return val, nil
}

// evalDo: (do form...) evaluates forms in order; (do) is nil.
func (e *Evaluator) evalDo(forms []Value, env *Frame) (Value, error) {
	result := NilVal()
	for _, form := range forms {
		val, err := e.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
		result = val
	}
	return result, nil
}

// evalLet: (let [name init ...] body...) binds sequentially in one new frame.
func (e *Evaluator) evalLet(rest []Value, env *Frame) (Value, error) {
	if err := checkLet(rest); err != nil {
		return Value{}, err
	}
	bindings := rest[0].Elems()
	targets := make([]Value, 0, len(bindings)/2)
	inits := make([]Value, 0, len(bindings)/2)
	for i := 0; i < len(bindings); i += 2 {
		targets = append(targets, bindings[i])
		inits = append(inits, bindings[i+1])
	}
	return e.let(env, targets, inits, false, rest[1:])
}

// let creates one child frame of parent, binds targets and evaluates body in
// it. Unless preEvaluated, each init is evaluated in the new frame and sees
// the bindings made before it; otherwise inits are attached as given.
func (e *Evaluator) let(parent *Frame, targets, inits []Value, preEvaluated bool, body []Value) (Value, error) {
	frame := NewFrame(parent)
	for i, target := range targets {
		val := inits[i]
		if !preEvaluated {
			var err error
			val, err = e.Eval(inits[i], frame)
			if err != nil {
				return Value{}, err
			}
		}
		if err := destructure(frame, target, val); err != nil {
			return Value{}, err
		}
	}
	return e.evalDo(body, frame)
}

// evalFn: (fn [params] body...) closes over env without creating a frame.
func (e *Evaluator) evalFn(rest []Value, env *Frame) (Value, error) {
	if err := checkFn(rest); err != nil {
		return Value{}, err
	}
	body := make([]Value, len(rest)-1)
	copy(body, rest[1:])
	return FnVal(&FnValue{
		Params:  rest[0],
		Body:    body,
		Closure: env,
	}), nil
}

func isFormHeaded(form Value, name string) bool {
	elems := form.Elems()
	return form.Kind == ValList && len(elems) > 0 && elems[0].IsSymbol(name)
}

// isFnLiteral matches (fn ...) and (macro (fn ...)).
func isFnLiteral(form Value) bool {
	if isFormHeaded(form, "fn") {
		return true
	}
	elems := form.Elems()
	return isFormHeaded(form, "macro") && len(elems) == 2 && isFormHeaded(elems[1], "fn")
}

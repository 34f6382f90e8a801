package clj

import "fmt"

// Apply calls a host or user function with already evaluated arguments.
// Host functions get no frame; user functions get one whose parent is their
// closure. Macros cannot be applied to values.
func (e *Evaluator) Apply(callee Value, args []Value) (Value, error) {
	switch callee.Kind {
	case ValHostFn:
		return callee.Host.Fn(args)
	case ValFn:
		return e.applyFn(callee.Fn, args)
	case ValMacro:
		return Value{}, typeErrorf("cannot apply macro %s to evaluated arguments", callee.String())
	default:
		return Value{}, typeErrorf("cannot call %s value", callee.KindName())
	}
}

// applyFn pairs parameters with values positionally and evaluates the body
// as a pre-evaluated let over the closure frame, so arguments never see each
// other the way sequential let bindings do.
func (e *Evaluator) applyFn(fn *FnValue, args []Value) (Value, error) {
	targets, vals, err := pairParams(fn, args)
	if err != nil {
		return Value{}, err
	}
	return e.let(fn.Closure, targets, vals, true, fn.Body)
}

// evalMacroCall expands a macro call and evaluates the expansion in the
// caller's env. The macro receives the whole call form and the calling env
// ahead of the unevaluated argument forms. Expansions are not cached.
func (e *Evaluator) evalMacroCall(m *FnValue, form Value, env *Frame) (Value, error) {
	expansion, err := e.expand(m, form, env)
	if err != nil {
		return Value{}, err
	}
	return e.Eval(expansion, env)
}

func (e *Evaluator) expand(m *FnValue, form Value, env *Frame) (Value, error) {
	argForms := form.Elems()[1:]
	args := make([]Value, 0, len(argForms)+2)
	args = append(args, form, EnvVal(env))
	args = append(args, argForms...)
	expansion, err := e.applyFn(m, args)
	if err != nil {
		return Value{}, err
	}
	if err := Validate(expansion); err != nil {
		return Value{}, fmt.Errorf("expanding %s: %w", form.String(), err)
	}
	return expansion, nil
}

// Macroexpand1 expands form once if its head names a macro in env, and
// reports whether it did.
func (e *Evaluator) Macroexpand1(form Value, env *Frame) (Value, bool, error) {
	elems := form.Elems()
	if form.Kind != ValList || len(elems) == 0 || elems[0].Kind != ValSymbol {
		return form, false, nil
	}
	head, ok := env.Lookup(elems[0].Str)
	if !ok || head.Kind != ValMacro {
		return form, false, nil
	}
	expansion, err := e.expand(head.Fn, form, env)
	if err != nil {
		return Value{}, false, err
	}
	return expansion, true, nil
}

// pairParams matches a parameter vector against argument values. A trailing
// "& name" collects the surplus as a List.
func pairParams(fn *FnValue, args []Value) ([]Value, []Value, error) {
	fixed, rest, hasRest := splitRest(fn.Params.Elems())
	if len(args) < len(fixed) || (!hasRest && len(args) != len(fixed)) {
		return nil, nil, &ArityMismatchError{Name: fn.Name, Want: len(fixed), Variadic: hasRest, Got: len(args)}
	}
	targets := make([]Value, 0, len(fixed)+1)
	vals := make([]Value, 0, len(fixed)+1)
	targets = append(targets, fixed...)
	vals = append(vals, args[:len(fixed)]...)
	if hasRest {
		targets = append(targets, rest)
		vals = append(vals, ListVal(args[len(fixed):]))
	}
	return targets, vals, nil
}

// splitRest separates "& name" from the fixed targets of a binding vector.
// Shapes are already checked by the validator.
func splitRest(targets []Value) ([]Value, Value, bool) {
	for i, t := range targets {
		if t.IsSymbol("&") && i+1 < len(targets) {
			return targets[:i], targets[i+1], true
		}
	}
	return targets, Value{}, false
}

// destructure binds target to val in frame. A Symbol binds directly; a
// Vector binds positionally against a List, Vector or nil, padding with nil.
func destructure(frame *Frame, target, val Value) error {
	switch target.Kind {
	case ValSymbol:
		return frame.BindNew(target.Str, val)
	case ValVector:
		if val.Kind != ValNil && !val.IsSeq() {
			return typeErrorf("cannot destructure %s against %s", val.KindName(), target.String())
		}
		elems := val.Elems()
		fixed, rest, hasRest := splitRest(target.Elems())
		for i, t := range fixed {
			item := NilVal()
			if i < len(elems) {
				item = elems[i]
			}
			if err := destructure(frame, t, item); err != nil {
				return err
			}
		}
		if hasRest {
			tail := []Value{}
			if len(elems) > len(fixed) {
				tail = elems[len(fixed):]
			}
			return destructure(frame, rest, ListVal(tail))
		}
		return nil
	default:
		return typeErrorf("binding target must be a symbol or vector, got %s", target.KindName())
	}
}

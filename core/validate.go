package clj

import "fmt"

// Validate checks the shape of every special form inside form before any of
// it is evaluated, so a malformed branch fails even if it would never run.
// The body of a quote is data and is not checked.
func Validate(form Value) error {
	switch form.Kind {
	case ValList:
		elems := form.Elems()
		if len(elems) > 0 && elems[0].Kind == ValSymbol {
			if elems[0].Str == "quote" {
				return checkQuote(elems[1:])
			}
			if check, ok := shapeChecks[elems[0].Str]; ok {
				if err := check(elems[1:]); err != nil {
					return err
				}
			}
		}
		for _, child := range elems {
			if err := Validate(child); err != nil {
				return err
			}
		}
	case ValVector:
		for _, child := range form.Elems() {
			if err := Validate(child); err != nil {
				return err
			}
		}
	case ValMap:
		var err error
		form.Map.Range(func(k, v Value) bool {
			if err = Validate(k); err != nil {
				return false
			}
			err = Validate(v)
			return err == nil
		})
		return err
	}
	return nil
}

var shapeChecks = map[string]func(rest []Value) error{
	"if":  checkIf,
	"def": checkDef,
	"let": checkLet,
	"fn":  checkFn,
	"do":  func([]Value) error { return nil },
}

// IsSpecialForm reports whether name is handled by the evaluator itself.
func IsSpecialForm(name string) bool {
	_, ok := shapeChecks[name]
	return ok || name == "quote"
}

func arityError(form string, want string, got int) error {
	return &ShapeError{Form: form, Msg: fmt.Sprintf("expected %s args, got %d", want, got)}
}

func checkQuote(rest []Value) error {
	if len(rest) != 1 {
		return arityError("quote", "1", len(rest))
	}
	return nil
}

func checkIf(rest []Value) error {
	if len(rest) != 3 {
		return arityError("if", "3 (cond then else)", len(rest))
	}
	return nil
}

func checkDef(rest []Value) error {
	if len(rest) != 2 {
		return arityError("def", "2 (name expr)", len(rest))
	}
	if rest[0].Kind != ValSymbol {
		return typeErrorf("def: name must be a Symbol, got %s", rest[0].KindName())
	}
	return nil
}

func checkLet(rest []Value) error {
	if len(rest) < 2 {
		return arityError("let", "at least 2 (bindings body...)", len(rest))
	}
	if rest[0].Kind != ValVector {
		return &ShapeError{Form: "let", Msg: fmt.Sprintf("bindings must be a Vector, got %s", rest[0].KindName())}
	}
	bindings := rest[0].Elems()
	if len(bindings)%2 != 0 {
		return &ShapeError{Form: "let", Msg: fmt.Sprintf("bindings must have an even number of forms, got %d", len(bindings))}
	}
	seen := map[string]bool{}
	for i := 0; i < len(bindings); i += 2 {
		if err := checkTarget("let", bindings[i], seen); err != nil {
			return err
		}
	}
	return nil
}

func checkFn(rest []Value) error {
	if len(rest) < 2 {
		return arityError("fn", "at least 2 (params body...)", len(rest))
	}
	if rest[0].Kind != ValVector {
		return &ShapeError{Form: "fn", Msg: fmt.Sprintf("params must be a Vector, got %s", rest[0].KindName())}
	}
	return checkTargets("fn", rest[0].Elems(), map[string]bool{})
}

// checkTarget validates one binding target and records the names it binds.
func checkTarget(form string, target Value, seen map[string]bool) error {
	switch target.Kind {
	case ValSymbol:
		if target.Str == "&" {
			return &ShapeError{Form: form, Msg: "& is only allowed inside a binding vector"}
		}
		if seen[target.Str] {
			return &ShapeError{Form: form, Msg: fmt.Sprintf("duplicate binding for %s in one scope", target.Str)}
		}
		seen[target.Str] = true
		return nil
	case ValVector:
		return checkTargets(form, target.Elems(), seen)
	default:
		return typeErrorf("%s: binding target must be a Symbol or Vector, got %s", form, target.KindName())
	}
}

// checkTargets validates a binding vector: targets, then optionally "& target".
func checkTargets(form string, targets []Value, seen map[string]bool) error {
	for i := 0; i < len(targets); i++ {
		if targets[i].IsSymbol("&") {
			if i != len(targets)-2 {
				return &ShapeError{Form: form, Msg: "& must be followed by exactly one binding target"}
			}
			return checkTarget(form, targets[i+1], seen)
		}
		if err := checkTarget(form, targets[i], seen); err != nil {
			return err
		}
	}
	return nil
}

package clj

import (
	"errors"
	"fmt"
)

// ShapeError reports a malformed form: wrong special-form arity, a
// non-Vector binding or parameter form, odd-length bindings or map entries,
// or a duplicate name within one frame.
type ShapeError struct {
	Form string
	Msg  string
}

func (e *ShapeError) Error() string {
	if e.Form != "" {
		return fmt.Sprintf("syntax error in %s: %s", e.Form, e.Msg)
	}
	return "syntax error: " + e.Msg
}

// UnboundSymbolError is returned when a symbol is absent from the whole
// environment chain.
type UnboundSymbolError struct {
	Name string
}

func (e *UnboundSymbolError) Error() string {
	return fmt.Sprintf("unbound symbol: %s", e.Name)
}

// TypeMismatchError is returned when a value of the wrong kind is used, e.g.
// calling a non-callable or binding to something that is not a name.
type TypeMismatchError struct {
	Msg string
}

func (e *TypeMismatchError) Error() string {
	return "type mismatch: " + e.Msg
}

func typeErrorf(format string, args ...any) error {
	return &TypeMismatchError{Msg: fmt.Sprintf(format, args...)}
}

// ArityMismatchError is returned when a callable receives the wrong number
// of arguments. Variadic means Want is a minimum.
type ArityMismatchError struct {
	Name     string
	Want     int
	Variadic bool
	Got      int
}

func (e *ArityMismatchError) Error() string {
	name := e.Name
	if name == "" {
		name = "fn"
	}
	if e.Variadic {
		return fmt.Sprintf("%s: expected at least %d args, got %d", name, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: expected %d args, got %d", name, e.Want, e.Got)
}

// DepthError is returned when evaluation nests deeper than the evaluator allows.
type DepthError struct {
	Max int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("maximum evaluation depth %d exceeded", e.Max)
}

// ParseError reports a reader failure at a rune offset. Incomplete is set
// when the input ended inside an open form or string.
type ParseError struct {
	Pos        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

// IsIncomplete reports whether err is a ParseError caused by truncated input.
func IsIncomplete(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Incomplete
}

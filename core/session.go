package clj

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Session owns one root frame and the evaluator that runs against it.
// A Session is not safe for concurrent use; Server serializes access.
type Session struct {
	ev       *Evaluator
	root     *Frame
	extra    map[string]Builtin
	traces   traceLog
	logger   *log.Logger
	maxDepth int
}

// Option configures a Session.
type Option func(*Session)

// WithBuiltins adds host functions to the root frame. They are installed
// after the core builtins and may replace them.
func WithBuiltins(builtins map[string]Builtin) Option {
	return func(s *Session) {
		for name, fn := range builtins {
			s.extra[name] = fn
		}
	}
}

// WithMaxDepth bounds evaluation nesting.
func WithMaxDepth(n int) Option {
	return func(s *Session) { s.maxDepth = n }
}

// WithMaxTraces caps how many traces are kept.
func WithMaxTraces(n int) Option {
	return func(s *Session) { s.traces.max = n }
}

// WithLogger sets where evaluation failures are logged.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a root frame holding the builtins and library macros.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		extra:  map[string]Builtin{},
		traces: traceLog{max: DefaultMaxTraces},
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.traces.max <= 0 {
		s.traces.max = DefaultMaxTraces
	}
	s.ev = &Evaluator{MaxDepth: s.maxDepth}
	if err := s.initRoot(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) initRoot() error {
	root := NewRootFrame()
	builtins := CoreBuiltins(s.ev)
	builtins["traces"] = s.traces.builtinTraces
	builtins["macroexpand"] = s.builtinMacroexpand
	builtins["macroexpand-1"] = s.builtinMacroexpand1
	InstallBuiltins(root, builtins)
	if err := loadPrelude(s.ev, root); err != nil {
		return fmt.Errorf("load prelude: %w", err)
	}
	InstallBuiltins(root, s.extra)
	s.root = root
	return nil
}

// Root returns the session's root frame.
func (s *Session) Root() *Frame {
	return s.root
}

// Eval reads src, validates it and evaluates it in the root frame.
func (s *Session) Eval(src string) (Value, error) {
	start := time.Now()
	form, err := Parse(src)
	if err != nil {
		s.record(src, start, Value{}, err)
		return Value{}, err
	}
	return s.evalForm(src, form, start)
}

// EvalForm validates and evaluates an already read form.
func (s *Session) EvalForm(form Value) (Value, error) {
	return s.evalForm(form.String(), form, time.Now())
}

func (s *Session) evalForm(src string, form Value, start time.Time) (Value, error) {
	if err := Validate(form); err != nil {
		s.record(src, start, Value{}, err)
		return Value{}, err
	}
	val, err := s.ev.Eval(form, s.root)
	s.record(src, start, val, err)
	if err != nil {
		return Value{}, err
	}
	return val, nil
}

func (s *Session) record(src string, start time.Time, val Value, err error) {
	t := Trace{
		Source:    src,
		Result:    val,
		Timestamp: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		t.Error = err.Error()
		s.logger.Printf("eval %q: %v", src, err)
	}
	s.traces.append(t)
}

// Load evaluates the file at path as one program.
func (s *Session) Load(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, fmt.Errorf("load %s: %w", path, err)
	}
	val, err := s.Eval(string(data))
	if err != nil {
		return Value{}, fmt.Errorf("load %s: %w", path, err)
	}
	return val, nil
}

// Lookup resolves name in the root frame.
func (s *Session) Lookup(name string) (Value, bool) {
	return s.root.Lookup(name)
}

// Define binds name to val in the root frame, replacing any previous value.
func (s *Session) Define(name string, val Value) {
	s.root.define(name, val)
}

// Reset discards every definition and trace and rebuilds the root frame.
func (s *Session) Reset() error {
	s.traces.reset()
	return s.initRoot()
}

// Traces returns up to n of the most recent traces; n < 0 means all.
func (s *Session) Traces(n int) []Trace {
	return s.traces.last(n)
}

// builtinMacroexpand: (macroexpand form) expands form until its head is no
// longer a macro bound in the root frame.
func (s *Session) builtinMacroexpand(args []Value) (Value, error) {
	if err := arity("macroexpand", args, 1); err != nil {
		return Value{}, err
	}
	form := args[0]
	for {
		expanded, ok, err := s.ev.Macroexpand1(form, s.root)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return form, nil
		}
		form = expanded
	}
}

func (s *Session) builtinMacroexpand1(args []Value) (Value, error) {
	if err := arity("macroexpand-1", args, 1); err != nil {
		return Value{}, err
	}
	form, _, err := s.ev.Macroexpand1(args[0], s.root)
	return form, err
}

package clj

import "time"

// DefaultMaxTraces caps how many traces a Session keeps.
const DefaultMaxTraces = 1000

// Trace records one top-level evaluation: the source, its result or error,
// and how long it took.
type Trace struct {
	Source    string
	Result    Value
	Error     string // empty on success
	Timestamp time.Time
	Duration  time.Duration
}

// ToValue converts a Trace to a Map keyed by keywords, for the traces builtin.
func (t *Trace) ToValue() Value {
	errVal := NilVal()
	if t.Error != "" {
		errVal = StringVal(t.Error)
	}
	m, _ := NewMap(
		KeywordVal("source"), StringVal(t.Source),
		KeywordVal("result"), t.Result,
		KeywordVal("error"), errVal,
		KeywordVal("timestamp"), StringVal(t.Timestamp.UTC().Format(time.RFC3339)),
		KeywordVal("duration-ms"), IntVal(t.Duration.Milliseconds()),
	)
	return m
}

// traceLog is a bounded list of traces, oldest first.
type traceLog struct {
	traces []Trace
	max    int
}

func (l *traceLog) append(t Trace) {
	l.traces = append(l.traces, t)
	if len(l.traces) > l.max {
		// Drop oldest traces
		excess := len(l.traces) - l.max
		l.traces = append([]Trace(nil), l.traces[excess:]...)
	}
}

// last returns up to n of the most recent traces; n < 0 means all.
func (l *traceLog) last(n int) []Trace {
	if n < 0 || n > len(l.traces) {
		n = len(l.traces)
	}
	out := make([]Trace, n)
	copy(out, l.traces[len(l.traces)-n:])
	return out
}

func (l *traceLog) reset() {
	l.traces = nil
}

// builtinTraces: (traces) or (traces n) returns the most recent traces as a
// List of Maps.
func (l *traceLog) builtinTraces(args []Value) (Value, error) {
	n := -1
	switch len(args) {
	case 0:
	case 1:
		if args[0].Kind != ValInt {
			return Value{}, typeErrorf("traces: expected Int arg, got %s", args[0].KindName())
		}
		n = int(args[0].Int)
		if n < 0 {
			n = 0
		}
	default:
		return Value{}, &ArityMismatchError{Name: "traces", Want: 0, Variadic: true, Got: len(args)}
	}
	traces := l.last(n)
	out := make([]Value, len(traces))
	for i := range traces {
		out[i] = traces[i].ToValue()
	}
	return ListVal(out), nil
}

package clj

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionKeepsDefinitions(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Eval("(defn sq [x] (* x x))"); err != nil {
		t.Fatal(err)
	}
	val, err := s.Eval("(sq 7)")
	if err != nil {
		t.Fatal(err)
	}
	if !ValuesEqual(val, IntVal(49)) {
		t.Fatalf("expected 49, got %s", val.String())
	}
}

func TestSessionValidatesBeforeEvaluating(t *testing.T) {
	s := newTestSession(t)
	// The malformed if sits in a branch that never runs, but the program
	// is still rejected and the def never happens.
	if _, err := s.Eval("(do (def x 1) (if false (if 1) 2))"); err == nil {
		t.Fatal("expected shape error")
	}
	if _, ok := s.Lookup("x"); ok {
		t.Fatal("x should not be defined")
	}
}

func TestSessionDefineAndLookup(t *testing.T) {
	s := newTestSession(t)
	s.Define("answer", IntVal(42))
	val, err := s.Eval("(+ answer 0)")
	if err != nil || !ValuesEqual(val, IntVal(42)) {
		t.Fatalf("got %s, %v", val.String(), err)
	}
	if v, ok := s.Lookup("defn"); !ok || v.Kind != ValMacro {
		t.Fatal("defn should be a macro in the root frame")
	}
}

func TestSessionWithBuiltins(t *testing.T) {
	s, err := NewSession(WithBuiltins(map[string]Builtin{
		"double": func(args []Value) (Value, error) {
			return IntVal(args[0].Int * 2), nil
		},
	}))
	if err != nil {
		t.Fatal(err)
	}
	val, err := s.Eval("(double 21)")
	if err != nil || !ValuesEqual(val, IntVal(42)) {
		t.Fatalf("got %s, %v", val.String(), err)
	}
}

func TestSessionReset(t *testing.T) {
	s := newTestSession(t)
	s.Eval("(def x 1)")
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Lookup("x"); ok {
		t.Fatal("x survived reset")
	}
	if len(s.Traces(-1)) != 0 {
		t.Fatal("traces survived reset")
	}
	if _, err := s.Eval("(defn f [] 1)"); err != nil {
		t.Fatalf("prelude missing after reset: %v", err)
	}
}

func TestSessionLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.clj")
	src := "; helpers\n(defn inc [x] (+ x 1))\n(inc 41)\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newTestSession(t)
	val, err := s.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !ValuesEqual(val, IntVal(42)) {
		t.Fatalf("expected 42, got %s", val.String())
	}
	if _, err := s.Load(filepath.Join(dir, "missing.clj")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSessionLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewSession(WithLogger(log.New(&buf, "", 0)))
	if err != nil {
		t.Fatal(err)
	}
	s.Eval("(boom)")
	if !strings.Contains(buf.String(), "unbound symbol: boom") {
		t.Fatalf("expected logged failure, got %q", buf.String())
	}
}

func TestSessionMaxTraces(t *testing.T) {
	s, err := NewSession(WithMaxTraces(2))
	if err != nil {
		t.Fatal(err)
	}
	for _, src := range []string{"1", "2", "3"} {
		s.Eval(src)
	}
	traces := s.Traces(-1)
	if len(traces) != 2 || traces[0].Source != "2" {
		t.Fatalf("unexpected traces %+v", traces)
	}
}

func TestSessionParseErrorTraced(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Eval("(unclosed"); !IsIncomplete(err) {
		t.Fatalf("expected incomplete parse error, got %v", err)
	}
	traces := s.Traces(1)
	if len(traces) != 1 || traces[0].Error == "" {
		t.Fatalf("expected failed trace, got %+v", traces)
	}
}

package clj

import (
	"fmt"
	"testing"
	"time"
)

func TestTraceToValue(t *testing.T) {
	tr := &Trace{
		Source:    "(+ 1 2)",
		Result:    IntVal(3),
		Timestamp: time.Date(2026, 2, 27, 20, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}

	v := tr.ToValue()
	if v.Kind != ValMap {
		t.Fatalf("expected Map, got %s", v.KindName())
	}
	for key, want := range map[string]Value{
		"source":      StringVal("(+ 1 2)"),
		"result":      IntVal(3),
		"error":       NilVal(),
		"timestamp":   StringVal("2026-02-27T20:00:00Z"),
		"duration-ms": IntVal(1500),
	} {
		got, ok := v.Map.Get(KeywordVal(key))
		if !ok || !ValuesEqual(got, want) {
			t.Fatalf("%s: expected %s, got %s", key, want.String(), got.String())
		}
	}
}

func TestTraceToValueWithError(t *testing.T) {
	tr := &Trace{Source: "(boom)", Error: "unbound symbol: boom"}
	got, _ := tr.ToValue().Map.Get(KeywordVal("error"))
	if !ValuesEqual(got, StringVal("unbound symbol: boom")) {
		t.Fatalf("error mismatch: %s", got.String())
	}
}

func TestTraceLogCap(t *testing.T) {
	l := &traceLog{max: 3}
	for i := 0; i < 5; i++ {
		l.append(Trace{Source: fmt.Sprintf("%d", i)})
	}
	if len(l.traces) != 3 {
		t.Fatalf("expected 3 traces, got %d", len(l.traces))
	}
	// Should have traces 2, 3, 4
	if l.traces[0].Source != "2" {
		t.Fatalf("expected oldest trace source '2', got %q", l.traces[0].Source)
	}
	if l.traces[2].Source != "4" {
		t.Fatalf("expected newest trace source '4', got %q", l.traces[2].Source)
	}
	if last := l.last(1); len(last) != 1 || last[0].Source != "4" {
		t.Fatalf("last(1): %+v", last)
	}
	if all := l.last(-1); len(all) != 3 {
		t.Fatalf("last(-1): expected 3, got %d", len(all))
	}
}

func TestTracesBuiltin(t *testing.T) {
	s := newTestSession(t)
	for _, src := range []string{"(+ 1 2)", "(boom)", "(* 2 3)"} {
		s.Eval(src)
	}
	val, err := s.Eval("(traces 2)")
	if err != nil {
		t.Fatal(err)
	}
	elems := val.Elems()
	if len(elems) != 2 {
		t.Fatalf("expected 2 traces, got %s", val.String())
	}
	src, _ := elems[0].Map.Get(KeywordVal("source"))
	errVal, _ := elems[0].Map.Get(KeywordVal("error"))
	if !ValuesEqual(src, StringVal("(boom)")) || errVal.Kind != ValString {
		t.Fatalf("unexpected first trace: %s", elems[0].String())
	}
	res, _ := elems[1].Map.Get(KeywordVal("result"))
	if !ValuesEqual(res, IntVal(6)) {
		t.Fatalf("unexpected second trace: %s", elems[1].String())
	}

	if _, err := s.Eval(`(traces "x")`); err == nil {
		t.Fatal("expected error for non-Int arg")
	}
}

package main

import "testing"

func TestBuildRequest(t *testing.T) {
	for _, tc := range []struct {
		name    string
		define  string
		lookup  string
		traces  int
		reset   bool
		args    []string
		wantOp  any
		wantKey string
		wantVal any
	}{
		{name: "eval", traces: -1, args: []string{"(+", "1", "2)"}, wantOp: "eval", wantKey: "expr", wantVal: "(+ 1 2)"},
		{name: "define", define: "sq", traces: -1, args: []string{"(fn [x] (* x x))"}, wantOp: "define", wantKey: "name", wantVal: "sq"},
		{name: "lookup", lookup: "sq", traces: -1, wantOp: "lookup", wantKey: "name", wantVal: "sq"},
		{name: "traces", traces: 3, wantOp: "traces", wantKey: "n", wantVal: 3},
		{name: "clear", traces: -1, reset: true, wantOp: "clear"},
		{name: "manual", traces: -1, wantOp: nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req, err := buildRequest(tc.define, tc.lookup, tc.traces, tc.reset, tc.args)
			if err != nil {
				t.Fatal(err)
			}
			if req["op"] != tc.wantOp {
				t.Fatalf("op: got %v, want %v", req["op"], tc.wantOp)
			}
			if tc.wantKey != "" && req[tc.wantKey] != tc.wantVal {
				t.Fatalf("%s: got %v, want %v", tc.wantKey, req[tc.wantKey], tc.wantVal)
			}
		})
	}

	if _, err := buildRequest("sq", "", -1, false, nil); err == nil {
		t.Fatal("expected error for -define without an expression")
	}
}

package clj

import (
	"bytes"
	"io"
	"net"
	"path/filepath"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMsg(&buf, map[string]any{"id": "r1", "op": "eval"}); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMsg(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if msg["id"] != "r1" || msg["op"] != "eval" {
		t.Fatalf("unexpected message %v", msg)
	}
	if _, err := ReadMsg(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMsgTruncated(t *testing.T) {
	if _, err := ReadMsg(bytes.NewReader([]byte{0, 0, 0, 10, '{'})); err == nil || err == io.EOF {
		t.Fatalf("expected body error, got %v", err)
	}
}

func TestNextIDUnique(t *testing.T) {
	if NextID() == NextID() {
		t.Fatal("ids should differ")
	}
}

func TestValueToGo(t *testing.T) {
	m, _ := NewMap(KeywordVal("a"), NewVector(IntVal(1), KeywordVal("k")), StringVal("s"), SymbolVal("x"))
	got, err := ValueToGo(m)
	if err != nil {
		t.Fatal(err)
	}
	obj := got.(map[string]any)
	arr := obj["a"].([]any)
	if arr[0] != int64(1) || arr[1] != ":k" || obj["s"] != "sym:x" {
		t.Fatalf("unexpected conversion %v", obj)
	}
	if _, err := ValueToGo(FnVal(&FnValue{})); err == nil {
		t.Fatal("functions should not serialize")
	}
}

func TestGoToValue(t *testing.T) {
	v := GoToValue(map[string]any{
		"n":   float64(3),
		"f":   1.5,
		"k":   ":kw",
		"sym": "sym:x",
		"xs":  []any{"a", nil, true},
	})
	for key, want := range map[string]string{
		"n":   "3",
		"f":   "1.5",
		"k":   ":kw",
		"sym": "x",
		"xs":  `["a" nil true]`,
	} {
		got, ok := v.Map.Get(KeywordVal(key))
		if !ok || got.String() != want {
			t.Fatalf("%s: expected %s, got %s", key, want, got.String())
		}
	}
}

func startTestServer(t *testing.T) net.Conn {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "clj.sock")
	srv, err := NewServer(newTestSession(t), sock, nil)
	if err != nil {
		t.Fatal(err)
	}
	go srv.Run()
	t.Cleanup(srv.Shutdown)

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, msg map[string]any) map[string]any {
	t.Helper()
	if err := WriteMsg(conn, msg); err != nil {
		t.Fatal(err)
	}
	resp, err := ReadMsg(conn)
	if err != nil {
		t.Fatal(err)
	}
	if resp["id"] != msg["id"] {
		t.Fatalf("id mismatch: %v", resp)
	}
	return resp
}

func TestServerEval(t *testing.T) {
	conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"id": "1", "op": "eval", "expr": "(defn add [a b] (+ a b))"})
	if resp["ok"] != true || resp["printed"] != "#<fn add>" {
		t.Fatalf("unexpected response %v", resp)
	}
	if _, has := resp["value"]; has {
		t.Fatal("functions have no JSON value")
	}

	resp = roundTrip(t, conn, map[string]any{"id": "2", "op": "eval", "expr": "(list (add 1 2) :k)"})
	if resp["ok"] != true || resp["printed"] != "(3 :k)" {
		t.Fatalf("unexpected response %v", resp)
	}
	vals := resp["value"].([]any)
	if vals[0] != float64(3) || vals[1] != ":k" {
		t.Fatalf("unexpected value %v", resp["value"])
	}

	resp = roundTrip(t, conn, map[string]any{"id": "3", "op": "eval", "expr": "(boom)"})
	if resp["ok"] != false || resp["error"] != "unbound symbol: boom" {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestServerDefineLookupClear(t *testing.T) {
	conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"id": "1", "op": "define", "name": "x", "expr": "(* 6 7)"})
	if resp["ok"] != true || resp["printed"] != "42" {
		t.Fatalf("define: %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "2", "op": "lookup", "name": "x"})
	if resp["ok"] != true || resp["value"] != float64(42) {
		t.Fatalf("lookup: %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "3", "op": "traces", "n": float64(1)})
	traces := resp["value"].([]any)
	if len(traces) != 1 || traces[0].(map[string]any)["result"] != "42" {
		t.Fatalf("traces: %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "4", "op": "clear"})
	if resp["ok"] != true {
		t.Fatalf("clear: %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "5", "op": "lookup", "name": "x"})
	if resp["ok"] != false {
		t.Fatalf("x should be gone after clear: %v", resp)
	}
}

func TestServerManualAndUnknownOp(t *testing.T) {
	conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{"id": "1"})
	manual := resp["value"].(map[string]any)
	if manual["name"] != "clj-server" {
		t.Fatalf("unexpected manual %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "2", "op": "nope"})
	if resp["ok"] != false || resp["error"] != "unknown op: nope" {
		t.Fatalf("unexpected response %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "3", "op": "eval"})
	if resp["ok"] != false {
		t.Fatalf("missing expr should fail: %v", resp)
	}
}

func TestServerDefineJSONValue(t *testing.T) {
	conn := startTestServer(t)

	resp := roundTrip(t, conn, map[string]any{
		"id":    "1",
		"op":    "define",
		"name":  "cfg",
		"value": map[string]any{"port": float64(8080), "tags": []any{"a", ":b"}},
	})
	if resp["ok"] != true {
		t.Fatalf("define: %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "2", "op": "eval", "expr": "(list (get cfg :port) (nth (get cfg :tags) 1))"})
	if resp["printed"] != "(8080 :b)" {
		t.Fatalf("eval: %v", resp)
	}
	resp = roundTrip(t, conn, map[string]any{"id": "3", "op": "define", "name": "x"})
	if resp["ok"] != false {
		t.Fatalf("define without expr or value should fail: %v", resp)
	}
}

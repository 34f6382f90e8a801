package clj

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ValueKind int

const (
	ValNil ValueKind = iota
	ValBool
	ValInt
	ValFloat
	ValString
	ValSymbol
	ValKeyword
	ValList
	ValVector
	ValMap
	ValHostFn
	ValFn
	ValMacro
	ValEnv
)

// Builtin is a function implemented in Go, called with eagerly evaluated arguments.
type Builtin func(args []Value) (Value, error)

// HostFn is a named Go callable. Host callables never see an environment.
type HostFn struct {
	Name string
	Fn   Builtin
}

// FnValue is a user function or macro: parameter vector, body forms and the
// frame active where it was defined.
type FnValue struct {
	Name    string
	Params  Value
	Body    []Value
	Closure *Frame
}

type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Items *[]Value
	Map   *MapValue
	Fn    *FnValue
	Host  *HostFn
	Env   *Frame
}

func NilVal() Value               { return Value{Kind: ValNil} }
func BoolVal(b bool) Value        { return Value{Kind: ValBool, Bool: b} }
func IntVal(n int64) Value        { return Value{Kind: ValInt, Int: n} }
func FloatVal(f float64) Value    { return Value{Kind: ValFloat, Float: f} }
func StringVal(s string) Value    { return Value{Kind: ValString, Str: s} }
func SymbolVal(s string) Value    { return Value{Kind: ValSymbol, Str: s} }
func KeywordVal(s string) Value   { return Value{Kind: ValKeyword, Str: s} }
func FnVal(fn *FnValue) Value     { return Value{Kind: ValFn, Fn: fn} }
func MacroVal(fn *FnValue) Value  { return Value{Kind: ValMacro, Fn: fn} }
func EnvVal(f *Frame) Value       { return Value{Kind: ValEnv, Env: f} }
func HostVal(name string, fn Builtin) Value {
	return Value{Kind: ValHostFn, Host: &HostFn{Name: name, Fn: fn}}
}

// ListVal copies elems, so later writes to the caller's slice are not observed.
func ListVal(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{Kind: ValList, Items: &cp}
}

func VectorVal(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{Kind: ValVector, Items: &cp}
}

// NewList builds a List from its arguments.
func NewList(elems ...Value) Value { return ListVal(elems) }

// NewVector builds a Vector from its arguments.
func NewVector(elems ...Value) Value { return VectorVal(elems) }

// Truthy: only nil and false are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValNil:
		return false
	case ValBool:
		return v.Bool
	default:
		return true
	}
}

// IsSeq reports whether v is a List or a Vector.
func (v Value) IsSeq() bool {
	return v.Kind == ValList || v.Kind == ValVector
}

// IsCallable reports whether v can appear as the head of a call.
func (v Value) IsCallable() bool {
	return v.Kind == ValHostFn || v.Kind == ValFn || v.Kind == ValMacro
}

// Elems returns the elements of a List or Vector, nil otherwise.
// The returned slice must not be modified.
func (v Value) Elems() []Value {
	if !v.IsSeq() || v.Items == nil {
		return nil
	}
	return *v.Items
}

func (v Value) IsSymbol(name string) bool {
	return v.Kind == ValSymbol && v.Str == name
}

func (v Value) String() string {
	switch v.Kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValInt:
		return strconv.FormatInt(v.Int, 10)
	case ValFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnI") {
			s += ".0"
		}
		return s
	case ValString:
		return strconv.Quote(v.Str)
	case ValSymbol:
		return v.Str
	case ValKeyword:
		return ":" + v.Str
	case ValList:
		return "(" + joinValues(v.Elems()) + ")"
	case ValVector:
		return "[" + joinValues(v.Elems()) + "]"
	case ValMap:
		parts := make([]string, 0, v.Map.Len())
		v.Map.Range(func(k, val Value) bool {
			parts = append(parts, k.String()+" "+val.String())
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case ValHostFn:
		return fmt.Sprintf("#<host %s>", v.Host.Name)
	case ValFn:
		if v.Fn.Name != "" {
			return fmt.Sprintf("#<fn %s>", v.Fn.Name)
		}
		return "#<fn>"
	case ValMacro:
		if v.Fn.Name != "" {
			return fmt.Sprintf("#<macro %s>", v.Fn.Name)
		}
		return "#<macro>"
	case ValEnv:
		return "#<env>"
	default:
		return fmt.Sprintf("#<unknown:%d>", v.Kind)
	}
}

func joinValues(elems []Value) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

func (v Value) KindName() string {
	switch v.Kind {
	case ValNil:
		return "Nil"
	case ValBool:
		return "Bool"
	case ValInt:
		return "Int"
	case ValFloat:
		return "Float"
	case ValString:
		return "String"
	case ValSymbol:
		return "Symbol"
	case ValKeyword:
		return "Keyword"
	case ValList:
		return "List"
	case ValVector:
		return "Vector"
	case ValMap:
		return "Map"
	case ValHostFn:
		return "HostFunction"
	case ValFn:
		return "Function"
	case ValMacro:
		return "Macro"
	case ValEnv:
		return "Env"
	default:
		return "Unknown"
	}
}

// ValuesEqual compares two Values structurally. Lists and Vectors compare
// element-wise against each other; callables and environments compare by identity.
func ValuesEqual(a, b Value) bool {
	if a.IsSeq() && b.IsSeq() {
		as, bs := a.Elems(), b.Elems()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !ValuesEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValNil:
		return true
	case ValBool:
		return a.Bool == b.Bool
	case ValInt:
		return a.Int == b.Int
	case ValFloat:
		return a.Float == b.Float
	case ValString, ValSymbol, ValKeyword:
		return a.Str == b.Str
	case ValMap:
		return a.Map.equal(b.Map)
	case ValHostFn:
		return a.Host == b.Host
	case ValFn, ValMacro:
		return a.Fn == b.Fn
	case ValEnv:
		return a.Env == b.Env
	}
	return false
}

// --- Map ---

type mapEntry struct {
	key Value
	val Value
}

// MapValue is a persistent map keyed by structural equality. Assoc returns a
// new map and leaves the receiver untouched.
type MapValue struct {
	entries map[string]mapEntry
}

// hashKey returns a string that is equal for structurally equal values.
func hashKey(v Value) string {
	switch v.Kind {
	case ValList, ValVector:
		elems := v.Elems()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = hashKey(e)
		}
		return "s(" + strings.Join(parts, " ") + ")"
	case ValMap:
		keys := make([]string, 0, v.Map.Len())
		for k, e := range v.Map.entries {
			keys = append(keys, k+"="+hashKey(e.val))
		}
		sort.Strings(keys)
		return "m{" + strings.Join(keys, " ") + "}"
	case ValHostFn:
		return fmt.Sprintf("h%p", v.Host)
	case ValFn, ValMacro:
		return fmt.Sprintf("f%p", v.Fn)
	case ValEnv:
		return fmt.Sprintf("e%p", v.Env)
	case ValFloat:
		f := v.Float
		if f == 0 {
			f = 0 // -0.0 and 0.0 are the same key
		}
		return fmt.Sprintf("%d:%s", v.Kind, strconv.FormatFloat(f, 'g', -1, 64))
	default:
		return fmt.Sprintf("%d:%s", v.Kind, v.String())
	}
}

// NewMap builds a Map from alternating key/value entries. An odd number of
// entries is a ShapeError. Later duplicates of a key replace earlier ones.
func NewMap(kvs ...Value) (Value, error) {
	if len(kvs)%2 != 0 {
		return Value{}, &ShapeError{Form: "map", Msg: fmt.Sprintf("map literal must contain an even number of forms, got %d", len(kvs))}
	}
	m := &MapValue{entries: make(map[string]mapEntry, len(kvs)/2)}
	for i := 0; i < len(kvs); i += 2 {
		m.entries[hashKey(kvs[i])] = mapEntry{key: kvs[i], val: kvs[i+1]}
	}
	return Value{Kind: ValMap, Map: m}, nil
}

func (m *MapValue) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *MapValue) Get(key Value) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	e, ok := m.entries[hashKey(key)]
	if !ok {
		return Value{}, false
	}
	return e.val, true
}

func (m *MapValue) Assoc(key, val Value) Value {
	next := &MapValue{entries: make(map[string]mapEntry, m.Len()+1)}
	if m != nil {
		for k, e := range m.entries {
			next.entries[k] = e
		}
	}
	next.entries[hashKey(key)] = mapEntry{key: key, val: val}
	return Value{Kind: ValMap, Map: next}
}

// Range visits entries in printed-key order so output is deterministic.
func (m *MapValue) Range(f func(k, v Value) bool) {
	if m == nil {
		return
	}
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return m.entries[keys[i]].key.String() < m.entries[keys[j]].key.String()
	})
	for _, k := range keys {
		e := m.entries[k]
		if !f(e.key, e.val) {
			return
		}
	}
}

func (m *MapValue) Keys() []Value {
	keys := make([]Value, 0, m.Len())
	m.Range(func(k, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

func (m *MapValue) equal(o *MapValue) bool {
	if m.Len() != o.Len() {
		return false
	}
	for k, e := range m.entries {
		oe, ok := o.entries[k]
		if !ok || !ValuesEqual(e.val, oe.val) {
			return false
		}
	}
	return true
}

package clj

import (
	"fmt"
	"sort"
)

// Frame is one link of the environment chain. Bindings in a frame with a
// parent are write-once; only the root frame is rebound, by def.
type Frame struct {
	bindings map[string]Value
	parent   *Frame
}

// NewRootFrame creates a parentless frame.
func NewRootFrame() *Frame {
	return &Frame{bindings: make(map[string]Value)}
}

// NewFrame creates an empty child of parent.
func NewFrame(parent *Frame) *Frame {
	return &Frame{bindings: make(map[string]Value), parent: parent}
}

func (f *Frame) Parent() *Frame {
	return f.parent
}

// Lookup walks from f towards the root and returns the first binding found.
// A name bound to nil is found.
func (f *Frame) Lookup(name string) (Value, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if val, ok := cur.bindings[name]; ok {
			return val, true
		}
	}
	return Value{}, false
}

// Root returns the parentless frame at the end of the chain.
func (f *Frame) Root() *Frame {
	cur := f
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// BindNew adds a binding to f. Shadowing an ancestor's binding is fine;
// binding the same name twice in f is a ShapeError.
func (f *Frame) BindNew(name string, val Value) error {
	if _, exists := f.bindings[name]; exists {
		return &ShapeError{Msg: fmt.Sprintf("duplicate binding for %s in one scope", name)}
	}
	f.bindings[name] = val
	return nil
}

// HasOwn reports whether name is bound directly in f, ignoring ancestors.
func (f *Frame) HasOwn(name string) bool {
	_, ok := f.bindings[name]
	return ok
}

// define writes name on the root frame, replacing any previous value.
func (f *Frame) define(name string, val Value) {
	f.Root().bindings[name] = val
}

// Names returns the names bound directly in f, sorted.
func (f *Frame) Names() []string {
	names := make([]string, 0, len(f.bindings))
	for k := range f.bindings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

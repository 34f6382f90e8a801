// Package modtime exposes unix-timestamp helpers to a session as host functions.
package modtime

import (
	"fmt"
	"time"

	clj "github.com/ethanresnick/clojure-in-go/core"
)

// now is replaced in tests.
var now = time.Now

// Builtins returns the host functions, ready for clj.WithBuiltins.
func Builtins() map[string]clj.Builtin {
	return map[string]clj.Builtin{
		"time/now":    builtinNow,
		"time/format": builtinFormat,
		"time/parse":  builtinParse,
		"time/add":    builtinAdd,
		"time/diff":   builtinDiff,
	}
}

func instant(t time.Time) clj.Value {
	m, _ := clj.NewMap(
		clj.KeywordVal("unix"), clj.IntVal(t.Unix()),
		clj.KeywordVal("iso"), clj.StringVal(t.UTC().Format(time.RFC3339)),
	)
	return m
}

// --- Field helpers ---

func unixArg(fn string, v clj.Value) (time.Time, error) {
	switch v.Kind {
	case clj.ValInt:
		return time.Unix(v.Int, 0), nil
	case clj.ValFloat:
		return time.Unix(int64(v.Float), 0), nil
	default:
		return time.Time{}, fmt.Errorf("%s: expected unix seconds, got %s", fn, v.KindName())
	}
}

func stringArg(fn, what string, v clj.Value) (string, error) {
	if v.Kind != clj.ValString {
		return "", fmt.Errorf("%s: %s must be String, got %s", fn, what, v.KindName())
	}
	return v.Str, nil
}

func arity(fn string, args []clj.Value, want int) error {
	if len(args) != want {
		return &clj.ArityMismatchError{Name: fn, Want: want, Got: len(args)}
	}
	return nil
}

// --- Handlers ---

// builtinNow: (time/now) => {:unix n, :iso "..."}
func builtinNow(args []clj.Value) (clj.Value, error) {
	if err := arity("time/now", args, 0); err != nil {
		return clj.Value{}, err
	}
	return instant(now()), nil
}

// builtinFormat: (time/format unix layout) formats in UTC with a Go layout.
func builtinFormat(args []clj.Value) (clj.Value, error) {
	if err := arity("time/format", args, 2); err != nil {
		return clj.Value{}, err
	}
	t, err := unixArg("time/format", args[0])
	if err != nil {
		return clj.Value{}, err
	}
	layout, err := stringArg("time/format", "layout", args[1])
	if err != nil {
		return clj.Value{}, err
	}
	return clj.StringVal(t.UTC().Format(layout)), nil
}

// builtinParse: (time/parse value layout) => unix seconds
func builtinParse(args []clj.Value) (clj.Value, error) {
	if err := arity("time/parse", args, 2); err != nil {
		return clj.Value{}, err
	}
	value, err := stringArg("time/parse", "value", args[0])
	if err != nil {
		return clj.Value{}, err
	}
	layout, err := stringArg("time/parse", "layout", args[1])
	if err != nil {
		return clj.Value{}, err
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return clj.Value{}, fmt.Errorf("time/parse: %w", err)
	}
	return clj.IntVal(parsed.Unix()), nil
}

// builtinAdd: (time/add unix "2h30m") => {:unix n, :iso "..."}
func builtinAdd(args []clj.Value) (clj.Value, error) {
	if err := arity("time/add", args, 2); err != nil {
		return clj.Value{}, err
	}
	t, err := unixArg("time/add", args[0])
	if err != nil {
		return clj.Value{}, err
	}
	durStr, err := stringArg("time/add", "duration", args[1])
	if err != nil {
		return clj.Value{}, err
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		return clj.Value{}, fmt.Errorf("time/add: invalid duration: %w", err)
	}
	return instant(t.Add(dur)), nil
}

// builtinDiff: (time/diff from to) => {:duration "24h0m0s", :seconds 86400.0}
func builtinDiff(args []clj.Value) (clj.Value, error) {
	if err := arity("time/diff", args, 2); err != nil {
		return clj.Value{}, err
	}
	from, err := unixArg("time/diff", args[0])
	if err != nil {
		return clj.Value{}, err
	}
	to, err := unixArg("time/diff", args[1])
	if err != nil {
		return clj.Value{}, err
	}
	diff := to.Sub(from)
	return clj.NewMap(
		clj.KeywordVal("duration"), clj.StringVal(diff.String()),
		clj.KeywordVal("seconds"), clj.FloatVal(diff.Seconds()),
	)
}

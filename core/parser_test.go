package clj

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, input string) Value {
	t.Helper()
	v, err := Parse(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return v
}

func TestParseAtoms(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  Value
	}{
		{"42", IntVal(42)},
		{"-7", IntVal(-7)},
		{"+3", IntVal(3)},
		{"3.14", FloatVal(3.14)},
		{"true", BoolVal(true)},
		{"false", BoolVal(false)},
		{"nil", NilVal()},
		{":foo", KeywordVal("foo")},
		{"foo-bar?", SymbolVal("foo-bar?")},
		{"-", SymbolVal("-")},
		{"&form", SymbolVal("&form")},
		{`"hello world"`, StringVal("hello world")},
	} {
		got := mustParse(t, tc.input)
		if got.Kind != tc.want.Kind || !ValuesEqual(got, tc.want) {
			t.Fatalf("parse %q: expected %s %s, got %s %s",
				tc.input, tc.want.KindName(), tc.want.String(), got.KindName(), got.String())
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	n := mustParse(t, `"line\none\ttab\\ \"q\""`)
	if n.Str != "line\none\ttab\\ \"q\"" {
		t.Fatalf("expected escapes, got %q", n.Str)
	}
}

func TestParseList(t *testing.T) {
	n := mustParse(t, "(add 1 2)")
	if n.Kind != ValList || len(n.Elems()) != 3 {
		t.Fatalf("expected list with 3 children, got %s", n.String())
	}
	if !n.Elems()[0].IsSymbol("add") {
		t.Fatalf("expected head 'add', got %s", n.Elems()[0].String())
	}
}

func TestParseCollections(t *testing.T) {
	for _, tc := range []struct {
		input string
		kind  ValueKind
		print string
	}{
		{"()", ValList, "()"},
		{"[1 [2 3]]", ValVector, "[1 [2 3]]"},
		{"{:b 2, :a 1}", ValMap, "{:a 1, :b 2}"},
		{"(if true (list 1) [2])", ValList, "(if true (list 1) [2])"},
		{"[1,2,,3]", ValVector, "[1 2 3]"},
	} {
		n := mustParse(t, tc.input)
		if n.Kind != tc.kind || n.String() != tc.print {
			t.Fatalf("parse %q: expected %s, got %s %s", tc.input, tc.print, n.KindName(), n.String())
		}
	}
}

func TestParseQuoteReader(t *testing.T) {
	n := mustParse(t, "'(a 'b)")
	if n.String() != "(quote (a (quote b)))" {
		t.Fatalf("got %s", n.String())
	}
}

func TestParseMultipleFormsWrappedInDo(t *testing.T) {
	n := mustParse(t, "1 2")
	if n.String() != "(do 1 2)" {
		t.Fatalf("expected (do 1 2), got %s", n.String())
	}
}

func TestParseTopLevelComment(t *testing.T) {
	n := mustParse(t, "; this is a comment\n42")
	if n.String() != `(do (comment " this is a comment") 42)` {
		t.Fatalf("got %s", n.String())
	}
}

func TestParseTrailingCommentDropped(t *testing.T) {
	if n := mustParse(t, "(+ 1 2) ; sum"); n.String() != "(+ 1 2)" {
		t.Fatalf("got %s", n.String())
	}
	if n := mustParse(t, "; only a comment"); n.String() != `(comment " only a comment")` {
		t.Fatalf("got %s", n.String())
	}
	forms, err := ParseAll("1 ; one")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 2 {
		t.Fatalf("ParseAll should keep every form, got %d", len(forms))
	}
}

func TestParseCommentInsideCollection(t *testing.T) {
	n := mustParse(t, "(list 1 ; skipped\n 2)")
	if n.String() != "(list 1 2)" {
		t.Fatalf("got %s", n.String())
	}
}

func TestParseAllKeepsForms(t *testing.T) {
	forms, err := ParseAll("(def a 1) a")
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		input      string
		incomplete bool
	}{
		{"", false},
		{"(unclosed", true},
		{"[1 2", true},
		{`"unclosed`, true},
		{")", false},
		{"(a]", false},
		{":", false},
		{`"\q"`, false},
		{"12abc", false},
	}
	for _, tc := range cases {
		_, err := Parse(tc.input)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%q: expected ParseError, got %v", tc.input, err)
		}
		if IsIncomplete(err) != tc.incomplete {
			t.Fatalf("%q: expected incomplete=%v, got %v", tc.input, tc.incomplete, err)
		}
	}
}

func TestParseOddMapLiteral(t *testing.T) {
	_, err := Parse("{:a}")
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
}

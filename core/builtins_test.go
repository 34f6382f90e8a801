package clj

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestArithmetic(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"(+)", "0"},
		{"(+ 1 2 3)", "6"},
		{"(+ 1 2.5)", "3.5"},
		{"(*)", "1"},
		{"(* 2 3 4)", "24"},
		{"(- 5)", "-5"},
		{"(- 10 3 2)", "5"},
		{"(- 1.5)", "-1.5"},
		{"(/ 10 2)", "5"},
		{"(/ 1 2)", "0.5"},
		{"(/ 4)", "0.25"},
		{"(/ 6.0 3)", "2.0"},
	} {
		testEvalPrints(t, tc.input, tc.want)
	}
}

func TestArithmeticErrors(t *testing.T) {
	var ae *ArityMismatchError
	if err := testEvalError(t, "(-)"); !errors.As(err, &ae) {
		t.Fatalf("expected ArityMismatchError, got %v", err)
	}
	var te *TypeMismatchError
	for _, input := range []string{`(+ 1 "a")`, `(- "a")`, `(* :k 2)`, `(< 1 "2")`} {
		if err := testEvalError(t, input); !errors.As(err, &te) {
			t.Fatalf("%s: expected TypeMismatchError, got %v", input, err)
		}
	}
	testEvalError(t, "(/ 1 0)")
}

func TestIntegerOverflow(t *testing.T) {
	for _, input := range []string{
		"(+ 9223372036854775807 1)",
		"(* 9223372036854775807 2)",
		"(- 0 9223372036854775807 2)",
		"(- (- 0 9223372036854775807 1))",
		"(* -1 (- 0 9223372036854775807 1))",
	} {
		err := testEvalError(t, input)
		if !strings.Contains(err.Error(), "integer overflow") {
			t.Fatalf("%s: expected overflow error, got %v", input, err)
		}
	}
	testEval(t, "(+ 9223372036854775806 1)", IntVal(math.MaxInt64))
	testEval(t, "(* -3 4)", IntVal(-12))
	testEval(t, "(- 0 9223372036854775807 1)", IntVal(math.MinInt64))
}

func TestComparison(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"(< 1 2 3)", true},
		{"(< 1 3 2)", false},
		{"(<= 1 1 2)", true},
		{"(> 3 2.5)", true},
		{"(>= 2 2)", true},
		{"(= 1 1 1)", true},
		{"(= 1 2)", false},
		{`(= "a" "a")`, true},
		{"(= :a :a)", true},
		{"(= 'a 'a)", true},
		{"(not nil)", true},
		{"(not 0)", false},
	} {
		testEval(t, tc.input, BoolVal(tc.want))
	}
}

func TestSequenceBuiltins(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"(list 1 2)", "(1 2)"},
		{"(vector 1 2)", "[1 2]"},
		{"(vec '(1 2))", "[1 2]"},
		{"(first [1 2])", "1"},
		{"(first ())", "nil"},
		{"(first nil)", "nil"},
		{"(rest [1 2 3])", "(2 3)"},
		{"(rest ())", "()"},
		{"(cons 0 [1 2])", "(0 1 2)"},
		{"(cons 0 nil)", "(0)"},
		{"(conj [1 2] 3 4)", "[1 2 3 4]"},
		{"(conj '(1 2) 3 4)", "(4 3 1 2)"},
		{"(count [1 2 3])", "3"},
		{"(count nil)", "0"},
		{`(count "héllo")`, "5"},
		{"(count {:a 1})", "1"},
		{"(nth [1 2 3] 1)", "2"},
		{"(nth [1 2 3] 5 :none)", ":none"},
	} {
		testEvalPrints(t, tc.input, tc.want)
	}
	testEvalError(t, "(nth [1 2] 2)")
	testEvalError(t, "(first 1)")
}

func TestMapBuiltins(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"(hash-map :a 1 :b 2)", "{:a 1, :b 2}"},
		{"(get {:a 1} :a)", "1"},
		{"(get {:a 1} :b)", "nil"},
		{"(get {:a 1} :b 0)", "0"},
		{"(get [5 6] 1)", "6"},
		{"(get nil :a)", "nil"},
		{"(assoc {:a 1} :b 2 :a 3)", "{:a 3, :b 2}"},
		{"(assoc nil :a 1)", "{:a 1}"},
		{"(keys {:b 1 :a 2})", "(:a :b)"},
		{"(get {[1 2] :x} '(1 2))", ":x"},
	} {
		testEvalPrints(t, tc.input, tc.want)
	}
	var se *ShapeError
	if err := testEvalError(t, "(hash-map :a)"); !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
}

func TestAssocLeavesOriginal(t *testing.T) {
	testEvalPrints(t, "(let [m {:a 1} n (assoc m :b 2)] (list m n))", "({:a 1} {:a 1, :b 2})")
}

func TestPredicates(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"(symbol? 'a)", true},
		{"(symbol? :a)", false},
		{"(keyword? :a)", true},
		{"(list? '(1))", true},
		{"(vector? [1])", true},
		{"(map? {})", true},
		{"(nil? nil)", true},
		{"(nil? false)", false},
		{`(string? "s")`, true},
		{"(number? 1.5)", true},
		{"(fn? +)", true},
		{"(fn? (fn [] 1))", true},
		{"(fn? 1)", false},
	} {
		testEval(t, tc.input, BoolVal(tc.want))
	}
}

func TestStrAndType(t *testing.T) {
	testEval(t, `(str "a" 1 :k nil [1 "b"])`, StringVal(`a1:k[1 "b"]`))
	testEval(t, `(type 1)`, KeywordVal("int"))
	testEval(t, `(type +)`, KeywordVal("hostfunction"))
	testEval(t, `(type [])`, KeywordVal("vector"))
}

func TestReduce(t *testing.T) {
	testEval(t, "(reduce + [1 2 3 4])", IntVal(10))
	testEval(t, "(reduce + 10 [1 2])", IntVal(13))
	testEval(t, "(reduce + [])", IntVal(0))
	testEval(t, "(reduce (fn [acc x] (conj acc (* x x))) [] [1 2 3])", NewVector(ints(1, 4, 9)...))
}

func TestHigherOrder(t *testing.T) {
	testEvalPrints(t, "(map (fn [x] (* 2 x)) [1 2 3])", "(2 4 6)")
	testEvalPrints(t, "(filter (fn [x] (> x 1)) '(1 2 3))", "(2 3)")
	testEval(t, "(apply + 1 2 [3 4])", IntVal(10))
	testEval(t, "(apply (fn [a b] (- a b)) [5 2])", IntVal(3))
}

func TestHostCallsUserFunctionError(t *testing.T) {
	var ae *ArityMismatchError
	if err := testEvalError(t, "(map (fn [a b] a) [1])"); !errors.As(err, &ae) {
		t.Fatalf("expected ArityMismatchError, got %v", err)
	}
}

func TestMacroBuiltin(t *testing.T) {
	testEval(t, `(do (def twice (macro (fn [&form &env x] (list 'do x x)))) (twice 7))`, IntVal(7))
	var te *TypeMismatchError
	if err := testEvalError(t, "(macro 1)"); !errors.As(err, &te) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

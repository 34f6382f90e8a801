// Package modsqlite exposes SQLite databases to a session as host functions.
//
//	(sqlite/open "app.db")
//	(sqlite/exec "app.db" "INSERT INTO t (name) VALUES (?)" ["ada"])
//	(sqlite/query "app.db" "SELECT * FROM t")  ; => ({:id 1, :name "ada"})
package modsqlite

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	clj "github.com/ethanresnick/clojure-in-go/core"
	_ "github.com/mattn/go-sqlite3"
)

// Library tracks the databases opened through its builtins, keyed by the
// name they were opened with.
type Library struct {
	mu     sync.Mutex
	dbs    map[string]*sql.DB
	logger *log.Logger
}

// New creates a Library. A nil logger discards output.
func New(logger *log.Logger) *Library {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Library{dbs: make(map[string]*sql.DB), logger: logger}
}

// Builtins returns the host functions, ready for clj.WithBuiltins.
func (l *Library) Builtins() map[string]clj.Builtin {
	return map[string]clj.Builtin{
		"sqlite/open":       l.builtinOpen,
		"sqlite/close":      l.builtinClose,
		"sqlite/drop":       l.builtinDrop,
		"sqlite/list":       l.builtinList,
		"sqlite/query":      l.builtinQuery,
		"sqlite/exec":       l.builtinExec,
		"sqlite/exec-multi": l.builtinExecMulti,
	}
}

// Close closes every open database.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for name, db := range l.dbs {
		l.logger.Printf("closing database: %s", name)
		db.Close()
		delete(l.dbs, name)
	}
}

func stringArg(fn string, args []clj.Value, i int, what string) (string, error) {
	if args[i].Kind != clj.ValString {
		return "", fmt.Errorf("%s: %s must be String, got %s", fn, what, args[i].KindName())
	}
	return args[i].Str, nil
}

func (l *Library) getDB(fn, name string) (*sql.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	db, ok := l.dbs[name]
	if !ok {
		return nil, fmt.Errorf("%s: database %q not open", fn, name)
	}
	return db, nil
}

// memoryDB names a private in-memory database. It has no file to remove.
const memoryDB = ":memory:"

// builtinOpen: (sqlite/open name) opens or creates a database file.
// ":memory:" opens a private in-memory database.
func (l *Library) builtinOpen(args []clj.Value) (clj.Value, error) {
	if len(args) != 1 {
		return clj.Value{}, &clj.ArityMismatchError{Name: "sqlite/open", Want: 1, Got: len(args)}
	}
	name, err := stringArg("sqlite/open", args, 0, "db")
	if err != nil {
		return clj.Value{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.dbs[name]; exists {
		return clj.Value{}, fmt.Errorf("sqlite/open: database %q already open", name)
	}
	db, err := sql.Open("sqlite3", name)
	if err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/open: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return clj.Value{}, fmt.Errorf("sqlite/open: %w", err)
	}
	l.dbs[name] = db
	l.logger.Printf("opened database: %s", name)
	return clj.StringVal(name), nil
}

// builtinClose: (sqlite/close name)
func (l *Library) builtinClose(args []clj.Value) (clj.Value, error) {
	if len(args) != 1 {
		return clj.Value{}, &clj.ArityMismatchError{Name: "sqlite/close", Want: 1, Got: len(args)}
	}
	name, err := stringArg("sqlite/close", args, 0, "db")
	if err != nil {
		return clj.Value{}, err
	}

	l.mu.Lock()
	db, exists := l.dbs[name]
	if !exists {
		l.mu.Unlock()
		return clj.Value{}, fmt.Errorf("sqlite/close: database %q not open", name)
	}
	delete(l.dbs, name)
	l.mu.Unlock()

	if err := db.Close(); err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/close: %w", err)
	}
	l.logger.Printf("closed database: %s", name)
	return clj.NilVal(), nil
}

// builtinDrop: (sqlite/drop name) closes the database if open and deletes its file.
func (l *Library) builtinDrop(args []clj.Value) (clj.Value, error) {
	if len(args) != 1 {
		return clj.Value{}, &clj.ArityMismatchError{Name: "sqlite/drop", Want: 1, Got: len(args)}
	}
	name, err := stringArg("sqlite/drop", args, 0, "db")
	if err != nil {
		return clj.Value{}, err
	}

	l.mu.Lock()
	db, open := l.dbs[name]
	if open {
		delete(l.dbs, name)
	}
	l.mu.Unlock()

	if open {
		db.Close()
	}
	if name == memoryDB {
		if !open {
			return clj.Value{}, fmt.Errorf("sqlite/drop: database %q not open", name)
		}
		l.logger.Printf("dropped database: %s", name)
		return clj.NilVal(), nil
	}
	if err := os.Remove(name); err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/drop: %w", err)
	}
	l.logger.Printf("dropped database: %s", name)
	return clj.NilVal(), nil
}

// builtinList: (sqlite/list) returns the open database names, sorted.
func (l *Library) builtinList(args []clj.Value) (clj.Value, error) {
	if len(args) != 0 {
		return clj.Value{}, &clj.ArityMismatchError{Name: "sqlite/list", Want: 0, Got: len(args)}
	}
	l.mu.Lock()
	names := make([]string, 0, len(l.dbs))
	for name := range l.dbs {
		names = append(names, name)
	}
	l.mu.Unlock()
	sort.Strings(names)

	out := make([]clj.Value, len(names))
	for i, n := range names {
		out[i] = clj.StringVal(n)
	}
	return clj.VectorVal(out), nil
}

// statementArgs reads "db sql [params]" starting at args[0].
func (l *Library) statementArgs(fn string, args []clj.Value) (*sql.DB, string, []any, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, "", nil, &clj.ArityMismatchError{Name: fn, Want: 2, Variadic: true, Got: len(args)}
	}
	name, err := stringArg(fn, args, 0, "db")
	if err != nil {
		return nil, "", nil, err
	}
	query, err := stringArg(fn, args, 1, "sql")
	if err != nil {
		return nil, "", nil, err
	}
	db, err := l.getDB(fn, name)
	if err != nil {
		return nil, "", nil, err
	}
	var params []any
	if len(args) == 3 {
		if params, err = sqlParams(args[2]); err != nil {
			return nil, "", nil, fmt.Errorf("%s: %w", fn, err)
		}
	}
	return db, query, params, nil
}

// builtinQuery: (sqlite/query db sql [params]) returns a List of row Maps
// keyed by column Keywords.
func (l *Library) builtinQuery(args []clj.Value) (clj.Value, error) {
	db, query, params, err := l.statementArgs("sqlite/query", args)
	if err != nil {
		return clj.Value{}, err
	}

	rows, err := db.Query(query, params...)
	if err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/query: %w", err)
	}

	var results []clj.Value
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return clj.Value{}, fmt.Errorf("sqlite/query: %w", err)
		}
		kvs := make([]clj.Value, 0, 2*len(cols))
		for i, col := range cols {
			kvs = append(kvs, clj.KeywordVal(col), columnValue(vals[i]))
		}
		row, err := clj.NewMap(kvs...)
		if err != nil {
			return clj.Value{}, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/query: %w", err)
	}
	return clj.ListVal(results), nil
}

// builtinExec: (sqlite/exec db sql [params]) returns
// {:rows-affected n, :last-insert-id n}.
func (l *Library) builtinExec(args []clj.Value) (clj.Value, error) {
	db, query, params, err := l.statementArgs("sqlite/exec", args)
	if err != nil {
		return clj.Value{}, err
	}
	result, err := db.Exec(query, params...)
	if err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/exec: %w", err)
	}
	return execResult(result)
}

// builtinExecMulti: (sqlite/exec-multi db [[sql params] ...]) runs every
// statement in one transaction and returns a Vector of exec results. A
// statement may also be a bare sql String.
func (l *Library) builtinExecMulti(args []clj.Value) (clj.Value, error) {
	if len(args) != 2 {
		return clj.Value{}, &clj.ArityMismatchError{Name: "sqlite/exec-multi", Want: 2, Got: len(args)}
	}
	name, err := stringArg("sqlite/exec-multi", args, 0, "db")
	if err != nil {
		return clj.Value{}, err
	}
	db, err := l.getDB("sqlite/exec-multi", name)
	if err != nil {
		return clj.Value{}, err
	}
	if !args[1].IsSeq() || len(args[1].Elems()) == 0 {
		return clj.Value{}, fmt.Errorf("sqlite/exec-multi: statements must be a non-empty List or Vector")
	}

	tx, err := db.Begin()
	if err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/exec-multi: %w", err)
	}

	var results []clj.Value
	for i, stmt := range args[1].Elems() {
		query, params, err := statement(stmt)
		if err != nil {
			tx.Rollback()
			return clj.Value{}, fmt.Errorf("sqlite/exec-multi: stmt %d: %w", i, err)
		}
		result, err := tx.Exec(query, params...)
		if err != nil {
			tx.Rollback()
			return clj.Value{}, fmt.Errorf("sqlite/exec-multi: stmt %d: %w", i, err)
		}
		res, err := execResult(result)
		if err != nil {
			tx.Rollback()
			return clj.Value{}, err
		}
		results = append(results, res)
	}

	if err := tx.Commit(); err != nil {
		return clj.Value{}, fmt.Errorf("sqlite/exec-multi: %w", err)
	}
	return clj.VectorVal(results), nil
}

func statement(v clj.Value) (string, []any, error) {
	if v.Kind == clj.ValString {
		return v.Str, nil, nil
	}
	elems := v.Elems()
	if !v.IsSeq() || len(elems) == 0 || len(elems) > 2 || elems[0].Kind != clj.ValString {
		return "", nil, fmt.Errorf("expected sql String or [sql params], got %s", v.String())
	}
	if len(elems) == 1 {
		return elems[0].Str, nil, nil
	}
	params, err := sqlParams(elems[1])
	return elems[0].Str, params, err
}

func execResult(result sql.Result) (clj.Value, error) {
	ra, _ := result.RowsAffected()
	li, _ := result.LastInsertId()
	return clj.NewMap(
		clj.KeywordVal("rows-affected"), clj.IntVal(ra),
		clj.KeywordVal("last-insert-id"), clj.IntVal(li),
	)
}

// sqlParams converts a List or Vector of scalars into driver arguments.
func sqlParams(v clj.Value) ([]any, error) {
	if v.Kind == clj.ValNil {
		return nil, nil
	}
	if !v.IsSeq() {
		return nil, fmt.Errorf("params must be a List or Vector, got %s", v.KindName())
	}
	elems := v.Elems()
	params := make([]any, len(elems))
	for i, p := range elems {
		switch p.Kind {
		case clj.ValNil:
			params[i] = nil
		case clj.ValBool:
			params[i] = p.Bool
		case clj.ValInt:
			params[i] = p.Int
		case clj.ValFloat:
			params[i] = p.Float
		case clj.ValString, clj.ValKeyword:
			params[i] = p.Str
		default:
			return nil, fmt.Errorf("param %d: cannot bind %s", i, p.KindName())
		}
	}
	return params, nil
}

func columnValue(v any) clj.Value {
	switch val := v.(type) {
	case nil:
		return clj.NilVal()
	case int64:
		return clj.IntVal(val)
	case float64:
		return clj.FloatVal(val)
	case bool:
		return clj.BoolVal(val)
	case []byte:
		return clj.StringVal(string(val))
	case string:
		return clj.StringVal(val)
	case time.Time:
		return clj.StringVal(val.UTC().Format(time.RFC3339))
	default:
		return clj.StringVal(fmt.Sprint(val))
	}
}

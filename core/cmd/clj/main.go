// Command clj runs programs and an interactive REPL.
//
//	clj                     start the REPL
//	clj a.clj b.clj         load files in order, then exit
//	clj -e '(+ 1 2)'        evaluate an expression and print the result
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	clj "github.com/ethanresnick/clojure-in-go/core"
	modsqlite "github.com/ethanresnick/clojure-in-go/mod-sqlite"
	modtime "github.com/ethanresnick/clojure-in-go/mod-time"
)

const (
	historyFile = ".clj_history"
	promptMain  = "clj> "
	promptCont  = "...  "
)

func main() {
	os.Exit(run())
}

func run() int {
	expr := flag.String("e", "", "evaluate `expr` and print the result")
	maxDepth := flag.Int("max-depth", clj.DefaultMaxDepth, "maximum evaluation depth")
	verbose := flag.Bool("v", false, "log evaluation failures to stderr")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "clj: ", log.LstdFlags)
	}

	db := modsqlite.New(logger)
	defer db.Close()
	session, err := clj.NewSession(
		clj.WithMaxDepth(*maxDepth),
		clj.WithLogger(logger),
		clj.WithBuiltins(db.Builtins()),
		clj.WithBuiltins(modtime.Builtins()),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, path := range flag.Args() {
		if _, err := session.Load(path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if *expr != "" {
		val, err := session.Eval(*expr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(val.String())
		return 0
	}
	if flag.NArg() > 0 {
		return 0
	}
	return repl(session)
}

func repl(session *clj.Session) int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	for {
		src, ok := readForm(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(src)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return 0
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		val, err := session.Eval(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(val.String())
	}
}

// readForm reads lines until they parse or fail for a reason other than
// running out of input. It reports false at end of input.
func readForm(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, err := clj.ParseAll(src); clj.IsIncomplete(err) {
			continue
		}
		return src, true
	}
}

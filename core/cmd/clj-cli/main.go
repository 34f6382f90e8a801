// Command clj-cli sends one request to a running clj-server.
//
//	clj-cli '(+ 1 2)'                      eval, print the result
//	clj-cli -define sq '(fn [x] (* x x))'  bind a name
//	clj-cli -lookup sq
//	clj-cli -traces 5
//	clj-cli -clear
//	echo '{"op":"eval","expr":"1"}' | clj-cli -
//
// With -json the raw response is printed instead of the value.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	clj "github.com/ethanresnick/clojure-in-go/core"
)

func main() {
	os.Exit(run())
}

func run() int {
	sock := flag.String("sock", envOr("CLJ_SOCK", "/tmp/clj.sock"), "server socket `path`")
	define := flag.String("define", "", "bind `name` to the value of the expression")
	lookup := flag.String("lookup", "", "show the value bound to `name`")
	traces := flag.Int("traces", -1, "show the last `n` traces")
	reset := flag.Bool("clear", false, "discard all definitions and traces")
	raw := flag.Bool("json", false, "print the raw JSON response")
	flag.Parse()

	req, err := buildRequest(*define, *lookup, *traces, *reset, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "clj-cli:", err)
		return 2
	}

	resp, err := send(*sock, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clj-cli:", err)
		return 1
	}

	if *raw {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
	} else if ok, _ := resp["ok"].(bool); !ok {
		fmt.Fprintln(os.Stderr, resp["error"])
	} else if printed, has := resp["printed"].(string); has {
		fmt.Println(printed)
	} else {
		out, _ := json.MarshalIndent(resp["value"], "", "  ")
		fmt.Println(string(out))
	}
	if ok, _ := resp["ok"].(bool); !ok {
		return 1
	}
	return 0
}

func buildRequest(define, lookup string, traces int, reset bool, args []string) (map[string]any, error) {
	switch {
	case define != "":
		if len(args) == 0 {
			return nil, errors.New("-define needs an expression")
		}
		return map[string]any{"op": "define", "name": define, "expr": strings.Join(args, " ")}, nil
	case lookup != "":
		return map[string]any{"op": "lookup", "name": lookup}, nil
	case traces >= 0:
		return map[string]any{"op": "traces", "n": traces}, nil
	case reset:
		return map[string]any{"op": "clear"}, nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		return msg, nil
	case len(args) > 0:
		return map[string]any{"op": "eval", "expr": strings.Join(args, " ")}, nil
	default:
		// An empty op asks the server for its manual.
		return map[string]any{}, nil
	}
}

func send(sock string, req map[string]any) (map[string]any, error) {
	if _, ok := req["id"]; !ok {
		req["id"] = clj.NextID()
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := clj.WriteMsg(conn, req); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	resp, err := clj.ReadMsg(conn)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	return resp, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

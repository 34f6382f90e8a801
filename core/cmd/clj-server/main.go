package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	clj "github.com/ethanresnick/clojure-in-go/core"
	modsqlite "github.com/ethanresnick/clojure-in-go/mod-sqlite"
	modtime "github.com/ethanresnick/clojure-in-go/mod-time"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	sockPath := envOr("CLJ_SOCK", "/tmp/clj.sock")
	// Every *.clj file in dir is loaded at startup, in name order.
	dir := envOr("CLJ_DIR", "")

	logger := log.Default()
	db := modsqlite.New(logger)
	session, err := clj.NewSession(
		clj.WithLogger(logger),
		clj.WithBuiltins(db.Builtins()),
		clj.WithBuiltins(modtime.Builtins()),
	)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	if dir != "" {
		files, err := filepath.Glob(filepath.Join(dir, "*.clj"))
		if err != nil {
			log.Fatalf("scan %s: %v", dir, err)
		}
		sort.Strings(files)
		for _, f := range files {
			if _, err := session.Load(f); err != nil {
				log.Fatalf("%v", err)
			}
			log.Printf("loaded %s", f)
		}
	}

	server, err := clj.NewServer(session, sockPath, logger)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		server.Shutdown()
		db.Close()
		os.Exit(0)
	}()

	log.Printf("clj server listening on %s", sockPath)
	server.Run()
}

package clj

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// Server exposes a Session over a unix socket. Connections are handled
// concurrently but every request goes through one actor goroutine that owns
// the session.
type Server struct {
	session  *Session
	listener net.Listener
	requests chan serverRequest
	logger   *log.Logger

	mu        sync.Mutex // protects open and closed
	open      map[net.Conn]struct{}
	closed    bool
	closeOnce sync.Once
	conns     sync.WaitGroup
}

type serverRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewServer listens on sockPath, removing a stale socket first.
func NewServer(session *Session, sockPath string, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	os.Remove(sockPath)
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Server{
		session:  session,
		listener: listener,
		requests: make(chan serverRequest, 64),
		logger:   logger,
		open:     map[net.Conn]struct{}{},
	}, nil
}

// Addr returns the socket address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Run starts the actor goroutine and accepts connections. Blocks until
// Shutdown closes the listener.
func (s *Server) Run() {
	go s.actorLoop()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.open[conn] = struct{}{}
		s.conns.Add(1)
		s.mu.Unlock()
		go s.handleConnection(conn)
	}
}

// Shutdown stops accepting connections, closes open ones and stops the actor.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		s.listener.Close()
		s.mu.Lock()
		s.closed = true
		for conn := range s.open {
			conn.Close()
		}
		s.mu.Unlock()
		s.conns.Wait()
		close(s.requests)
	})
}

// actorLoop is the single goroutine that touches the session.
func (s *Server) actorLoop() {
	for req := range s.requests {
		req.response <- s.handleRequest(req.msg)
	}
}

func (s *Server) sendToActor(msg map[string]any) map[string]any {
	resp := make(chan map[string]any, 1)
	s.requests <- serverRequest{msg: msg, response: resp}
	return <-resp
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.conns.Done()
	defer func() {
		s.mu.Lock()
		delete(s.open, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				s.logger.Printf("read client message: %v", err)
			}
			return
		}

		resp := s.sendToActor(msg)
		if err := WriteMsg(conn, resp); err != nil {
			s.logger.Printf("write client response: %v", err)
			return
		}
	}
}

func (s *Server) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	switch op {
	case "":
		return manual(id)
	case "eval":
		return s.handleEval(id, msg)
	case "define":
		return s.handleDefine(id, msg)
	case "lookup":
		return s.handleLookup(id, msg)
	case "traces":
		return s.handleTraces(id, msg)
	case "clear":
		return s.handleClear(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func manual(id string) map[string]any {
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "clj-server",
			"version": "1.0.0",
			"ops": map[string]any{
				"eval":   "Evaluate a program. Params: expr (string)",
				"define": "Bind a name in the root frame. Params: name (string), expr (string) or value (JSON)",
				"lookup": "Resolve a name in the root frame. Params: name (string)",
				"traces": "Recent evaluations, newest last. Params: n (int, optional)",
				"clear":  "Discard all definitions and traces.",
			},
			"forms": []any{"quote", "if", "def", "do", "let", "fn"},
		},
	}
}

func (s *Server) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}
	val, err := s.session.Eval(expr)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	return valueResponse(id, val)
}

func (s *Server) handleDefine(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, "define: missing 'name' string")
	}
	if raw, has := msg["value"]; has {
		val := GoToValue(raw)
		s.session.Define(name, val)
		return valueResponse(id, val)
	}
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "define: missing 'expr' or 'value'")
	}
	form, err := Parse(expr)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	val, err := s.session.EvalForm(NewList(SymbolVal("def"), SymbolVal(name), form))
	if err != nil {
		return errorResponse(id, err.Error())
	}
	return valueResponse(id, val)
}

func (s *Server) handleLookup(id string, msg map[string]any) map[string]any {
	name, ok := msg["name"].(string)
	if !ok {
		return errorResponse(id, "lookup: missing 'name' string")
	}
	val, found := s.session.Lookup(name)
	if !found {
		return errorResponse(id, (&UnboundSymbolError{Name: name}).Error())
	}
	return valueResponse(id, val)
}

func (s *Server) handleTraces(id string, msg map[string]any) map[string]any {
	n := -1
	if raw, ok := msg["n"].(float64); ok {
		n = int(raw)
	}
	traces := s.session.Traces(n)
	out := make([]any, len(traces))
	for i := range traces {
		t := &traces[i]
		out[i] = map[string]any{
			"source":      t.Source,
			"result":      t.Result.String(),
			"error":       t.Error,
			"timestamp":   t.Timestamp.UTC().Format(time.RFC3339),
			"duration_ms": t.Duration.Milliseconds(),
		}
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleClear(id string) map[string]any {
	if err := s.session.Reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	return map[string]any{"id": id, "ok": true, "value": "cleared"}
}

// valueResponse carries the printed form of val, plus its JSON form when it
// has one.
func valueResponse(id string, val Value) map[string]any {
	resp := map[string]any{"id": id, "ok": true, "printed": val.String()}
	if goVal, err := ValueToGo(val); err == nil {
		resp["value"] = goVal
	}
	return resp
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}

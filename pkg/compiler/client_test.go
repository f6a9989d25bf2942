package compiler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/observability"
)

const compiledGraph = `{"directed":true,"multigraph":false,"elements":{
  "nodes":[{"data":{"id":"a","name":"a","module":"m"}},{"data":{"id":"b","name":"b","module":"m"}}],
  "edges":[{"data":{"source":"a","target":"b"}}]}}`

// fakeServer answers like the compiler server. When dropFirst is set, the
// first connection is closed after reading its first request.
type fakeServer struct {
	dropFirst bool
	conns     atomic.Int32
	mu        sync.Mutex
	requests  []Event
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n := s.conns.Add(1)

	for {
		var in Event
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, in)
		s.mu.Unlock()

		if s.dropFirst && n == 1 {
			return
		}

		var out map[string]any
		switch in.Command {
		case "ping":
			out = map[string]any{"command": "pong", "details": nil}
		case "compileDAG":
			var cfg CompileRequest
			json.Unmarshal(in.Details, &cfg)
			if len(cfg.ModuleFilePaths) == 1 && cfg.ModuleFilePaths[0] == "broken.py" {
				out = map[string]any{"command": "error", "details": "SyntaxError: invalid syntax"}
				break
			}
			out = map[string]any{"command": "compileDAG", "details": map[string]any{"graph": json.RawMessage(compiledGraph)}}
		default:
			out = map[string]any{"command": "error", "details": "unknown event"}
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}

func (s *fakeServer) Requests() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.requests...)
}

type stateRecorder struct {
	observability.NoopCompilerHooks
	mu          sync.Mutex
	transitions []string
}

func (r *stateRecorder) OnStateChange(_ context.Context, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+">"+to)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestClient(t *testing.T, url string, hooks observability.CompilerHooks) *Client {
	t.Helper()
	c := New(Options{
		URL:     url,
		Backoff: Backoff{MaxAttempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond},
		Timeout: 2 * time.Second,
		Logger:  log.NewWithOptions(&strings.Builder{}, log.Options{Level: log.ErrorLevel}),
		Hooks:   hooks,
	})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientPing(t *testing.T) {
	srv := httptest.NewServer(&fakeServer{})
	defer srv.Close()

	rec := &stateRecorder{}
	c := newTestClient(t, wsURL(srv), rec)
	if c.State() != StateDisconnected {
		t.Fatalf("initial State() = %v, want disconnected", c.State())
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if c.State() != StateOpen {
		t.Errorf("State() = %v, want open", c.State())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() after Close = %v, want disconnected", c.State())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{
		"disconnected>connecting",
		"connecting>open",
		"open>closing",
		"closing>disconnected",
	}
	if strings.Join(rec.transitions, " ") != strings.Join(want, " ") {
		t.Errorf("transitions = %v, want %v", rec.transitions, want)
	}
}

func TestClientCompile(t *testing.T) {
	fs := &fakeServer{}
	srv := httptest.NewServer(fs)
	defer srv.Close()
	c := newTestClient(t, wsURL(srv), nil)

	p, err := c.Compile(context.Background(), CompileRequest{ModuleFilePaths: []string{"/p/m.py"}})
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if len(p.Elements.Nodes) != 2 || len(p.Elements.Edges) != 1 {
		t.Errorf("Compile() = %d nodes, %d edges; want 2, 1", len(p.Elements.Nodes), len(p.Elements.Edges))
	}

	reqs := fs.Requests()
	if len(reqs) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(reqs))
	}
	if reqs[0].ID == "" {
		t.Error("request should carry an id")
	}
	var sent map[string]any
	if err := json.Unmarshal(reqs[0].Details, &sent); err != nil {
		t.Fatal(err)
	}
	if _, ok := sent["upstream_nodes"].([]any); !ok {
		t.Errorf("upstream_nodes = %v, want an empty list", sent["upstream_nodes"])
	}
}

func TestClientCompileErrors(t *testing.T) {
	srv := httptest.NewServer(&fakeServer{})
	defer srv.Close()
	c := newTestClient(t, wsURL(srv), nil)
	ctx := context.Background()

	_, err := c.Compile(ctx, CompileRequest{ModuleFilePaths: []string{"broken.py"}})
	if !derrors.Is(err, derrors.ErrCodeCompiler) {
		t.Errorf("Compile(broken) error = %v, want COMPILER_ERROR", err)
	}
	if got := derrors.UserMessage(err); got != "SyntaxError: invalid syntax" {
		t.Errorf("UserMessage() = %q", got)
	}

	_, err = c.Compile(ctx, CompileRequest{})
	if !derrors.Is(err, derrors.ErrCodeInvalidInput) {
		t.Errorf("Compile(no modules) error = %v, want INVALID_INPUT", err)
	}

	// The connection stays usable after an error reply.
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping() after error reply: %v", err)
	}
}

func TestClientReconnects(t *testing.T) {
	fs := &fakeServer{dropFirst: true}
	srv := httptest.NewServer(fs)
	defer srv.Close()
	c := newTestClient(t, wsURL(srv), nil)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if got := fs.conns.Load(); got != 2 {
		t.Errorf("connections = %d, want 2", got)
	}
	if got := len(fs.Requests()); got != 2 {
		t.Errorf("requests = %d, want 2 (original plus resend)", got)
	}
}

func TestClientConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	c := newTestClient(t, url, nil)
	err := c.Connect(context.Background())
	if !derrors.Is(err, derrors.ErrCodeNetwork) {
		t.Errorf("Connect() error = %v, want NETWORK_ERROR", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", c.State())
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateDisconnected, StateConnecting, true},
		{StateDisconnected, StateOpen, false},
		{StateConnecting, StateOpen, true},
		{StateConnecting, StateDisconnected, true},
		{StateOpen, StateClosing, true},
		{StateOpen, StateDisconnected, true},
		{StateOpen, StateConnecting, false},
		{StateClosing, StateDisconnected, true},
		{StateClosing, StateOpen, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{MaxAttempts: 4, Initial: 10 * time.Millisecond, Max: 30 * time.Millisecond}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

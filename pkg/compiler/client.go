package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
	"github.com/matzehuels/dagscope/pkg/observability"
)

// DefaultURL is where the compiler server listens by default.
const DefaultURL = "ws://127.0.0.1:8080/"

// Options configures a Client.
type Options struct {
	URL     string
	Backoff Backoff
	Timeout time.Duration // per request, zero for none
	Dialer  *websocket.Dialer
	Logger  *log.Logger
	Hooks   observability.CompilerHooks
}

// Client talks to a compiler server over one websocket connection.
//
// Requests are serialized: the server answers in order and carries no
// request ids, so only one request is in flight at a time. The connection is
// opened lazily and re-opened with backoff when it drops.
type Client struct {
	opts Options

	mu    sync.Mutex // serializes requests and guards conn
	conn  *websocket.Conn
	state State
	smu   sync.Mutex // guards state
}

// New creates a disconnected client.
func New(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Backoff.MaxAttempts == 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.Compiler()
	}
	return &Client{opts: opts}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.smu.Lock()
	defer c.smu.Unlock()
	return c.state
}

func (c *Client) setState(ctx context.Context, to State) {
	c.smu.Lock()
	from := c.state
	if from == to || !CanTransition(from, to) {
		c.smu.Unlock()
		if from != to {
			c.opts.Logger.Warn("ignored state transition", "from", from, "to", to)
		}
		return
	}
	c.state = to
	c.smu.Unlock()

	c.opts.Logger.Debug("compiler connection", "from", from, "to", to, "url", c.opts.URL)
	c.opts.Hooks.OnStateChange(ctx, from.String(), to.String())
}

// Connect opens the connection, retrying with the configured backoff.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= c.opts.Backoff.attempts(); attempt++ {
		c.setState(ctx, StateConnecting)
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
		if err == nil {
			c.conn = conn
			c.setState(ctx, StateOpen)
			return nil
		}
		lastErr = err
		c.setState(ctx, StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == c.opts.Backoff.attempts() {
			break
		}
		delay := c.opts.Backoff.Delay(attempt)
		c.opts.Logger.Debug("dial failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return derrors.Wrap(derrors.ErrCodeNetwork, lastErr, "connect to compiler at %s", c.opts.URL)
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	ctx := context.Background()
	c.setState(ctx, StateClosing)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	c.setState(ctx, StateDisconnected)
	return err
}

func (c *Client) drop(ctx context.Context) {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.setState(ctx, StateDisconnected)
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, cmdPing, nil, cmdPong)
	return err
}

// Compile asks the server to compile the given modules and returns the
// decoded graph payload.
func (c *Client) Compile(ctx context.Context, req CompileRequest) (graph.Payload, error) {
	if len(req.ModuleFilePaths) == 0 {
		return graph.Payload{}, derrors.New(derrors.ErrCodeInvalidInput, "compile needs at least one module")
	}
	if req.UpstreamNodes == nil {
		req.UpstreamNodes = []string{}
	}
	if req.DownstreamNodes == nil {
		req.DownstreamNodes = []string{}
	}

	details, err := c.do(ctx, cmdCompileDAG, req, cmdCompileDAG)
	if err != nil {
		return graph.Payload{}, err
	}
	var reply compileReply
	if err := json.Unmarshal(details, &reply); err != nil || len(reply.Graph) == 0 {
		return graph.Payload{}, derrors.New(derrors.ErrCodeMalformedPayload, "compileDAG reply has no graph")
	}
	return graph.DecodePayload(reply.Graph)
}

// do sends one request and waits for its reply, reconnecting and resending
// when the connection fails underneath it.
func (c *Client) do(ctx context.Context, command string, details any, want string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Event{ID: uuid.NewString(), Command: command}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", command, err)
		}
		req.Details = raw
	}

	start := time.Now()
	c.opts.Hooks.OnRequest(ctx, command)
	reply, err := c.send(ctx, req)
	if err == nil {
		err = checkReply(reply, want)
	}
	c.opts.Hooks.OnResponse(ctx, command, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	c.opts.Logger.Debug("compiler reply", "command", command, "id", req.ID, "duration", time.Since(start))
	return reply.Details, nil
}

func (c *Client) send(ctx context.Context, req Event) (Event, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.Backoff.attempts(); attempt++ {
		if err := c.connect(ctx); err != nil {
			return Event{}, err
		}
		reply, err := c.roundTrip(ctx, req)
		if err == nil {
			return reply, nil
		}
		if isDecodeError(err) {
			return Event{}, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "%s reply", req.Command)
		}
		c.drop(ctx)
		if ctx.Err() != nil {
			return Event{}, derrors.Wrap(derrors.ErrCodeTimeout, ctx.Err(), "%s", req.Command)
		}
		if isTimeout(err) {
			return Event{}, derrors.Wrap(derrors.ErrCodeTimeout, err, "%s", req.Command)
		}
		lastErr = err
		c.opts.Logger.Warn("compiler connection lost, retrying", "command", req.Command, "attempt", attempt, "error", err)
		if attempt < c.opts.Backoff.attempts() {
			select {
			case <-ctx.Done():
				return Event{}, ctx.Err()
			case <-time.After(c.opts.Backoff.Delay(attempt)):
			}
		}
	}
	return Event{}, derrors.Wrap(derrors.ErrCodeNetwork, lastErr, "%s", req.Command)
}

func (c *Client) roundTrip(ctx context.Context, req Event) (Event, error) {
	conn := c.conn
	deadline := time.Time{}
	if c.opts.Timeout > 0 {
		deadline = time.Now().Add(c.opts.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		return Event{}, err
	}
	var reply Event
	if err := conn.ReadJSON(&reply); err != nil {
		return Event{}, err
	}
	return reply, nil
}

// checkReply turns error replies and mismatched commands into errors.
func checkReply(reply Event, want string) error {
	switch reply.Command {
	case want:
		return nil
	case cmdError:
		var msg string
		if err := json.Unmarshal(reply.Details, &msg); err != nil {
			msg = string(reply.Details)
		}
		return derrors.New(derrors.ErrCodeCompiler, "%s", msg)
	default:
		return derrors.New(derrors.ErrCodeMalformedPayload, "expected %q reply, got %q", want, reply.Command)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isDecodeError(err error) bool {
	var se *json.SyntaxError
	var ue *json.UnmarshalTypeError
	return errors.As(err, &se) || errors.As(err, &ue)
}

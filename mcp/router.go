package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/kbukum/video-transcriber-mcp/authz"
	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/jsonrpc"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/observability"
)

// Handler serves one method. Notifications get a nil result.
type Handler func(ctx context.Context, call *Call) (any, error)

// ToolHandler serves one tool with its raw arguments.
type ToolHandler func(ctx context.Context, call *Call, args json.RawMessage) (*ToolResult, error)

// Tool is a registered tool.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Call is the request being served.
type Call struct {
	Request *jsonrpc.Request

	channel Channel
	token   json.RawMessage
	log     *logger.Logger
}

// Session is the scope of the channel the request came from.
func (c *Call) Session() string { return c.channel.Session() }

// Streaming reports whether progress notifications reach the caller.
func (c *Call) Streaming() bool {
	return c.channel.SupportsStreaming() && !c.Request.IsNotification()
}

// Progress sends a notifications/progress message for this request.
// Without a streaming channel it does nothing.
func (c *Call) Progress(ctx context.Context, progress int, message string) {
	if !c.Streaming() {
		return
	}
	msg, err := jsonrpc.Encode(jsonrpc.NewProgress(c.Request.ID, c.token, progress, message))
	if err != nil {
		return
	}
	if err := c.channel.Send(ctx, msg); err != nil {
		c.log.Debug("progress not delivered", logger.Fields(logger.FieldError, err.Error()))
	}
}

// CancelledByClient reports whether ctx ended because the client sent
// notifications/cancelled for this request, as opposed to the connection
// going away.
func CancelledByClient(ctx context.Context) (string, bool) {
	var c *clientCancel
	if stderrors.As(context.Cause(ctx), &c) {
		return c.reason, true
	}
	return "", false
}

type clientCancel struct{ reason string }

func (c *clientCancel) Error() string { return "cancelled by client: " + c.reason }

type inflight struct {
	cancel context.CancelCauseFunc
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// Authorizer rejects a request whose caller does not hold permission.
type Authorizer func(ctx context.Context, permission string) error

// WithAuthorizer checks tool calls and resource reads before they run.
func WithAuthorizer(a Authorizer) Option {
	return func(r *Router) { r.authorizer = a }
}

// WithInstructions sets the instructions returned by initialize.
func WithInstructions(text string) Option {
	return func(r *Router) { r.instructions = text }
}

// Router dispatches decoded requests to method and tool handlers.
type Router struct {
	info         ServerInfo
	instructions string
	log          *logger.Logger
	metrics      *observability.Metrics
	authorizer   Authorizer

	methods map[string]Handler
	tools   map[string]*Tool
	order   []string

	mu      sync.Mutex
	running map[string]*inflight
}

// NewRouter creates a router with the protocol methods registered.
func NewRouter(info ServerInfo, log *logger.Logger, opts ...Option) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Router{
		info:    info,
		log:     log.WithComponent("mcp"),
		methods: make(map[string]Handler),
		tools:   make(map[string]*Tool),
		running: make(map[string]*inflight),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Handle(MethodInitialize, r.initialize)
	r.Handle(MethodPing, func(context.Context, *Call) (any, error) { return struct{}{}, nil })
	r.Handle(MethodToolsList, r.listTools)
	r.Handle(MethodToolsCall, r.callTool)
	r.Handle(MethodInitialized, func(context.Context, *Call) (any, error) { return nil, nil })
	r.Handle(MethodCancelled, r.cancelled)
	return r
}

// Handle registers a method handler, replacing any previous one.
func (r *Router) Handle(method string, h Handler) {
	r.methods[method] = h
}

// AddTool registers a tool. tools/list reports tools in registration order.
func (r *Router) AddTool(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Tools lists the registered tools.
func (r *Router) Tools() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, ToolDescriptor{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out
}

// InFlight is the number of requests being served.
func (r *Router) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Serve reads frames from ch until it reports io.EOF or ctx ends, serving
// each on its own goroutine. It returns once every in-flight request has
// been answered.
func (r *Router) Serve(ctx context.Context, ch Channel) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		frame, err := ch.Receive(ctx)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if len(bytes.TrimSpace(frame)) == 0 {
			continue
		}

		wg.Add(1)
		go func(frame []byte) {
			defer wg.Done()
			if out := r.HandleFrame(ctx, ch, frame); out != nil {
				if err := ch.Send(ctx, out); err != nil {
					r.log.Warn("response not delivered", logger.Fields(logger.FieldSessionID, ch.Session(), logger.FieldError, err.Error()))
				}
			}
		}(frame)
	}
}

// HandleFrame decodes and dispatches one frame, returning the encoded
// response, or nil for a notification.
func (r *Router) HandleFrame(ctx context.Context, ch Channel, frame []byte) []byte {
	req, err := jsonrpc.Decode(frame)
	var resp *jsonrpc.Response
	if err != nil {
		r.log.Debug("rejected frame", logger.Fields(logger.FieldError, err.Error()))
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		resp = jsonrpc.Failure(id, err)
	} else {
		resp = r.Dispatch(ctx, ch, req)
	}
	if resp == nil {
		return nil
	}
	out, err := jsonrpc.Encode(resp)
	if err != nil {
		r.log.Error("encode response", logger.Fields(logger.FieldError, err.Error()))
		out, _ = jsonrpc.Encode(jsonrpc.Failure(resp.ID, errors.Internal(err)))
	}
	return out
}

// Dispatch serves one decoded request and returns its response, or nil
// for a notification.
func (r *Router) Dispatch(ctx context.Context, ch Channel, req *jsonrpc.Request) *jsonrpc.Response {
	scope := ch.Session()
	op := observability.NewOperationContext(req.Method, req.IDString(), scope, r.metrics)
	ctx, span := op.Start(ctx)
	ctx = logger.ContextWithSessionID(ctx, scope)
	if !req.IsNotification() {
		ctx = logger.ContextWithCorrelationID(ctx, req.IDString())
	}
	log := r.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldMethod, req.Method))

	call := &Call{Request: req, channel: ch, log: log}
	var meta requestMeta
	if len(req.Params) > 0 && req.Params[0] == '{' && json.Unmarshal(req.Params, &meta) == nil {
		call.token = meta.Meta.ProgressToken
	}

	var result any
	var err error
	if h, ok := r.methods[req.Method]; !ok {
		err = errors.MethodNotFound("method", req.Method)
	} else if err = r.authorizeMethod(ctx, req.Method); err == nil {
		result, err = r.call(ctx, h, call, scope)
	}

	status := "ok"
	if err != nil {
		status = "error"
		log.Debug("request failed", logger.Fields(logger.FieldError, err.Error()))
	}
	op.End(ctx, span, status, err)

	if req.IsNotification() {
		if err != nil {
			log.Warn("notification handler failed", logger.Fields(logger.FieldError, err.Error()))
		}
		return nil
	}
	if err != nil {
		return jsonrpc.Failure(req.ID, err)
	}
	if result == nil {
		result = struct{}{}
	}
	return jsonrpc.Success(req.ID, result)
}

// call runs h, tracking requests so notifications/cancelled can reach them.
func (r *Router) call(ctx context.Context, h Handler, call *Call, scope string) (any, error) {
	req := call.Request
	if req.IsNotification() {
		return r.invoke(ctx, h, call)
	}
	ctx, release, err := r.track(ctx, scope, req.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := r.invoke(ctx, h, call)
	var coded interface{ RPCCode() int }
	if err != nil && stderrors.Is(err, context.Canceled) && !stderrors.As(err, &coded) {
		if reason, ok := CancelledByClient(ctx); ok {
			err = errors.Cancelled(reason)
		}
	}
	return result, err
}

func (r *Router) invoke(ctx context.Context, h Handler, call *Call) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			call.log.Error("handler panicked", logger.Fields("panic", fmt.Sprint(p), "stack", string(debug.Stack())))
			result, err = nil, errors.Internal(fmt.Errorf("panic: %v", p))
		}
	}()
	return h(ctx, call)
}

// track registers a cancellable context for the request id within scope.
// An id still in flight in the same scope is rejected.
func (r *Router) track(ctx context.Context, scope string, id json.RawMessage) (context.Context, func(), error) {
	key := requestKey(scope, id)
	ctx, cancel := context.WithCancelCause(ctx)
	entry := &inflight{cancel: cancel}

	r.mu.Lock()
	if _, busy := r.running[key]; busy {
		r.mu.Unlock()
		cancel(nil)
		return nil, nil, errors.InvalidRequest("id " + string(id) + " is already in flight")
	}
	r.running[key] = entry
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		if r.running[key] == entry {
			delete(r.running, key)
		}
		r.mu.Unlock()
		cancel(nil)
	}, nil
}

// Cancel cancels the in-flight request with id in scope.
func (r *Router) Cancel(scope string, id json.RawMessage, reason string) bool {
	r.mu.Lock()
	entry, ok := r.running[requestKey(scope, id)]
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.cancel(&clientCancel{reason: reason})
	return true
}

func requestKey(scope string, id json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, id); err != nil {
		return scope + "\x00" + string(id)
	}
	return scope + "\x00" + buf.String()
}

func (r *Router) initialize(_ context.Context, call *Call) (any, error) {
	var params InitializeParams
	if err := jsonrpc.DecodeParams(call.Request.Params, &params); err != nil {
		return nil, err
	}
	call.log.Info("client initialized", logger.Fields(
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol_version", params.ProtocolVersion,
	))
	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      r.info,
		Instructions:    r.instructions,
	}, nil
}

func (r *Router) listTools(context.Context, *Call) (any, error) {
	return map[string]any{"tools": r.Tools()}, nil
}

func (r *Router) callTool(ctx context.Context, call *Call) (any, error) {
	var params callParams
	if err := jsonrpc.DecodeParams(call.Request.Params, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, errors.MissingField("name")
	}
	tool, ok := r.tools[params.Name]
	if !ok {
		return nil, errors.MethodNotFound("tool", params.Name)
	}
	if r.authorizer != nil {
		if err := r.authorizer(ctx, authz.ToolPermission(tool.Name)); err != nil {
			return nil, err
		}
	}
	call.log = call.log.WithFields(logger.Fields(logger.FieldTool, tool.Name))
	return tool.Handler(ctx, call, params.Arguments)
}

func (r *Router) authorizeMethod(ctx context.Context, method string) error {
	if r.authorizer == nil {
		return nil
	}
	switch method {
	case MethodResourcesList:
		return r.authorizer(ctx, authz.ResourcesList)
	case MethodResourcesRead:
		return r.authorizer(ctx, authz.ResourcesRead)
	}
	return nil
}

func (r *Router) cancelled(_ context.Context, call *Call) (any, error) {
	var params cancelledParams
	if err := jsonrpc.DecodeParams(call.Request.Params, &params); err != nil {
		return nil, err
	}
	if len(params.RequestID) == 0 {
		return nil, errors.MissingField("requestId")
	}
	if r.Cancel(call.Session(), params.RequestID, params.Reason) {
		call.log.Info("request cancelled by client", logger.Fields(logger.FieldCorrelationID, string(params.RequestID), "reason", params.Reason))
	}
	return nil, nil
}

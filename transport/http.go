package transport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/video-transcriber-mcp/auth"
	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/jsonrpc"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/mcp"
	"github.com/kbukum/video-transcriber-mcp/server"
	"github.com/kbukum/video-transcriber-mcp/server/middleware"
	"github.com/kbukum/video-transcriber-mcp/session"
	"github.com/kbukum/video-transcriber-mcp/sse"
)

// Path is where the MCP endpoint is mounted.
const Path = "/mcp"

const (
	contentTypeJSON = "application/json"
	eventStream     = "text/event-stream"
)

// HTTPOption configures an HTTPHandler.
type HTTPOption func(*HTTPHandler)

// WithKeepAlive sets the comment interval on standing streams.
func WithKeepAlive(d time.Duration) HTTPOption {
	return func(h *HTTPHandler) { h.keepAlive = d }
}

// WithAuth requires a bearer token accepted by v on every /mcp request.
func WithAuth(v auth.TokenValidator) HTTPOption {
	return func(h *HTTPHandler) { h.validator = v }
}

// HTTPHandler serves the MCP endpoint over HTTP sessions.
type HTTPHandler struct {
	router    *mcp.Router
	sessions  *session.Manager
	log       *logger.Logger
	keepAlive time.Duration
	validator auth.TokenValidator
}

// NewHTTPHandler creates the /mcp handlers.
func NewHTTPHandler(router *mcp.Router, sessions *session.Manager, log *logger.Logger, opts ...HTTPOption) *HTTPHandler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &HTTPHandler{
		router:    router,
		sessions:  sessions,
		log:       log.WithComponent("transport.http"),
		keepAlive: sse.DefaultKeepAlive * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts POST, GET and DELETE /mcp on r.
func (h *HTTPHandler) Register(r gin.IRouter) {
	g := r.Group(Path)
	if h.validator != nil {
		g.Use(middleware.Auth(middleware.AuthConfig{
			Validator: h.validator,
			OnError: func(c *gin.Context, err *errors.AppError) {
				writeFailure(c, http.StatusUnauthorized, nil, err)
			},
		}))
	}
	g.POST("", h.post)
	g.GET("", h.get)
	g.DELETE("", h.delete)
}

func (h *HTTPHandler) post(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeFailure(c, http.StatusRequestEntityTooLarge, nil, errors.InvalidRequest("request body too large"))
			return
		}
		writeFailure(c, http.StatusBadRequest, nil, errors.ParseError(err))
		return
	}

	req, err := jsonrpc.Decode(body)
	if err != nil {
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		writeFailure(c, http.StatusBadRequest, id, err)
		return
	}

	sid := c.GetHeader(server.HeaderSessionID)
	if sid == "" {
		if req.Method == mcp.MethodInitialize {
			h.initialize(c, req)
			return
		}
		writeFailure(c, http.StatusBadRequest, req.ID, errors.InvalidRequest("missing "+server.HeaderSessionID+" header"))
		return
	}
	if _, err := h.sessions.Resume(sid); err != nil {
		writeFailure(c, http.StatusNotFound, req.ID, err)
		return
	}

	ctx := logger.ContextWithSessionID(c.Request.Context(), sid)
	if req.IsNotification() {
		h.router.Dispatch(ctx, h.channel(sid, "", false), req)
		c.Status(http.StatusAccepted)
		return
	}
	if accepts(c.Request, eventStream) {
		h.stream(ctx, c, sid, req)
		return
	}
	h.reply(ctx, c, sid, req)
}

// initialize serves a handshake without a session and opens one when it
// succeeds.
func (h *HTTPHandler) initialize(c *gin.Context, req *jsonrpc.Request) {
	resp := h.router.Dispatch(c.Request.Context(), h.channel("", "", false), req)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	if resp.Error != nil {
		writeJSON(c, http.StatusOK, resp)
		return
	}

	var caps session.Capabilities
	if len(req.Params) > 0 {
		// The router already validated the params.
		_ = json.Unmarshal(req.Params, &caps)
	}
	s, err := h.sessions.Open(c.Request.Context(), caps)
	if err != nil {
		writeFailure(c, http.StatusInternalServerError, req.ID, err)
		return
	}
	c.Header(server.HeaderSessionID, s.ID())
	writeJSON(c, http.StatusOK, resp)
}

// reply serves one request and answers with a JSON body. When the session
// was closed while the request ran, the response is dropped and the client
// gets 204.
func (h *HTTPHandler) reply(ctx context.Context, c *gin.Context, sid string, req *jsonrpc.Request) {
	resp := h.router.Dispatch(ctx, h.channel(sid, req.IDString(), false), req)
	if _, open := h.sessions.Get(sid); !open {
		h.log.Debug("session closed before response", logger.Fields(logger.FieldSessionID, sid, logger.FieldCorrelationID, req.IDString()))
		c.Status(http.StatusNoContent)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

// stream serves one request as an event stream: progress notifications
// then the response, each as a message event. Events are routed through
// the session, so nothing is written once it closes.
func (h *HTTPHandler) stream(ctx context.Context, c *gin.Context, sid string, req *jsonrpc.Request) {
	corr := req.IDString()
	var stream *sse.Stream
	unsubscribe, err := h.sessions.Subscribe(sid, corr, func(payload []byte) bool {
		return stream.Send(sse.EventMessage, payload) == nil
	})
	if err != nil {
		writeFailure(c, http.StatusNotFound, req.ID, err)
		return
	}
	defer unsubscribe()

	stream, err = sse.NewStream(c.Writer)
	if err != nil {
		writeFailure(c, http.StatusNotAcceptable, req.ID, errors.InvalidRequest("event streams are not supported on this connection"))
		return
	}

	resp := h.router.Dispatch(ctx, h.channel(sid, corr, true), req)
	out, err := jsonrpc.Encode(resp)
	if err != nil {
		h.log.Error("encode response", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	if !h.sessions.Publish(sid, corr, out) {
		h.log.Debug("response not delivered", logger.Fields(logger.FieldSessionID, sid, logger.FieldCorrelationID, corr))
	}
}

// get opens the session's standing event stream for pushes that have no
// request stream.
func (h *HTTPHandler) get(c *gin.Context) {
	sid := c.GetHeader(server.HeaderSessionID)
	if sid == "" {
		writeFailure(c, http.StatusBadRequest, nil, errors.InvalidRequest("missing "+server.HeaderSessionID+" header"))
		return
	}
	if !accepts(c.Request, eventStream) {
		writeFailure(c, http.StatusNotAcceptable, nil, errors.InvalidRequest("GET requires Accept: "+eventStream))
		return
	}
	if _, err := h.sessions.Resume(sid); err != nil {
		writeFailure(c, http.StatusNotFound, nil, err)
		return
	}
	sse.Serve(h.sessions.Hub(), c.Writer, c.Request, sse.NewClient(sid, sse.WithSessionID(sid)), h.keepAlive)
}

// delete ends the session. Unknown sessions are not an error.
func (h *HTTPHandler) delete(c *gin.Context) {
	sid := c.GetHeader(server.HeaderSessionID)
	if sid == "" {
		writeFailure(c, http.StatusBadRequest, nil, errors.InvalidRequest("missing "+server.HeaderSessionID+" header"))
		return
	}
	h.sessions.Close(sid)
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) channel(sid, corr string, streaming bool) *httpChannel {
	return &httpChannel{sessions: h.sessions, sid: sid, corr: corr, streaming: streaming}
}

// httpChannel is the mcp.Channel seen by one POSTed request. Frames arrive
// one per request, so Receive is never used; Send routes through the
// session to the request's stream or the standing stream.
type httpChannel struct {
	sessions  *session.Manager
	sid       string
	corr      string
	streaming bool
}

func (ch *httpChannel) Receive(context.Context) ([]byte, error) { return nil, io.EOF }

func (ch *httpChannel) Send(_ context.Context, msg []byte) error {
	if ch.sid == "" {
		return errors.SessionNotFound("")
	}
	if !ch.sessions.Publish(ch.sid, ch.corr, msg) {
		return errors.ServiceUnavailable("session " + ch.sid + " stream")
	}
	return nil
}

func (ch *httpChannel) SupportsStreaming() bool { return ch.streaming }

func (ch *httpChannel) Session() string { return ch.sid }

func writeJSON(c *gin.Context, status int, resp *jsonrpc.Response) {
	out, err := jsonrpc.Encode(resp)
	if err != nil {
		out, _ = jsonrpc.Encode(jsonrpc.Failure(resp.ID, errors.Internal(err)))
	}
	c.Data(status, contentTypeJSON, out)
}

func writeFailure(c *gin.Context, status int, id json.RawMessage, err error) {
	writeJSON(c, status, jsonrpc.Failure(id, err))
	c.Abort()
}

// accepts reports whether the Accept header lists mediaType.
func accepts(r *http.Request, mediaType string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == mediaType {
			return true
		}
	}
	return false
}

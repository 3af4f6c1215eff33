package jsonrpc

import (
	"bytes"
	"encoding/json"
)

// Version is the only protocol version accepted.
const Version = "2.0"

// Request is a decoded request or notification frame.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the frame carries no id and so expects
// no response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// IDString is the id in its canonical JSON text, used as the correlation
// key. Both 7 and "7" are valid and distinct ids.
func (r *Request) IDString() string {
	return string(r.ID)
}

// Response is a terminal reply to one request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a server-initiated message without id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Progress is the params object of a notifications/progress message.
type Progress struct {
	RequestID     json.RawMessage `json:"requestId"`
	ProgressToken json.RawMessage `json:"progressToken,omitempty"`
	Progress      int             `json:"progress"`
	Total         int             `json:"total"`
	Message       string          `json:"message,omitempty"`
}

// Methods sent by the server.
const (
	MethodProgress = "notifications/progress"
)

var null = json.RawMessage("null")

// Success builds a result response. A result that cannot be marshalled
// becomes an internal error response.
func Success(id json.RawMessage, result any) *Response {
	raw, err := Encode(result)
	if err != nil {
		return Failure(id, err)
	}
	return &Response{JSONRPC: Version, ID: normalizeID(id), Result: raw}
}

// Failure builds an error response from any error.
func Failure(id json.RawMessage, err error) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Error: FromError(err)}
}

// NewNotification builds a notification.
func NewNotification(method string, params any) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

// NewProgress builds a notifications/progress message for the request
// with the given id.
func NewProgress(id, token json.RawMessage, progress int, message string) *Notification {
	return NewNotification(MethodProgress, Progress{
		RequestID:     id,
		ProgressToken: token,
		Progress:      progress,
		Total:         100,
		Message:       message,
	})
}

// Encode marshals a message as one compact JSON line without the trailing
// newline.
func Encode(msg any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return null
	}
	return id
}

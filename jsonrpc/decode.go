package jsonrpc

import (
	"bytes"
	"encoding/json"
	stderrors "errors"

	"github.com/kbukum/video-transcriber-mcp/errors"
)

// Decode parses one request frame. On failure the returned request still
// carries the id when one could be read, so the error response can be
// correlated; the error is an *errors.AppError with a protocol code.
func Decode(data []byte) (*Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.InvalidRequest("empty frame")
	}
	if data[0] == '[' {
		if !json.Valid(data) {
			return nil, errors.ParseError(nil)
		}
		return nil, errors.InvalidRequest("batch requests are not supported")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		if !json.Valid(data) {
			return nil, errors.ParseError(err)
		}
		return nil, errors.InvalidRequest("frame is not an object")
	}

	req := &Request{}
	if raw, ok := fields["id"]; ok && validID(raw) {
		req.ID = raw
	}

	if raw, ok := fields["jsonrpc"]; !ok || json.Unmarshal(raw, &req.JSONRPC) != nil || req.JSONRPC != Version {
		return req, errors.InvalidRequest(`"jsonrpc" must be "2.0"`)
	}
	if raw, ok := fields["id"]; ok && !validID(raw) {
		return req, errors.InvalidRequest(`"id" must be a string, number or null`)
	}
	raw, ok := fields["method"]
	if !ok {
		return req, errors.InvalidRequest(`"method" is required`)
	}
	if err := json.Unmarshal(raw, &req.Method); err != nil || req.Method == "" {
		return req, errors.InvalidRequest(`"method" must be a non-empty string`)
	}
	if params, ok := fields["params"]; ok && !isNull(params) {
		if c := params[0]; c != '{' && c != '[' {
			return req, errors.InvalidRequest(`"params" must be an object or array`)
		}
		req.Params = params
	}
	return req, nil
}

// DecodeParams unmarshals request params into v. Absent params leave v
// untouched. Kind mismatches are reported as invalid params naming the
// field.
func DecodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 || isNull(params) {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "params"
			}
			return errors.InvalidInput(field, field+" must be of type "+typeErr.Type.String()+", got "+typeErr.Value)
		}
		return errors.InvalidInput("params", err.Error())
	}
	return nil
}

func validID(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch c := raw[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		return true
	}
	return isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), null)
}

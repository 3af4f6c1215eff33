package jsonrpc

import (
	stderrors "errors"

	"github.com/kbukum/video-transcriber-mcp/errors"
)

// Error is the error object of a response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

type rpcCoder interface {
	RPCCode() int
}

type rpcDataCarrier interface {
	RPCData() map[string]any
}

// FromError maps an error to its wire form. Errors that know their code
// (job stage errors, application errors) keep it; anything else is an
// internal error whose text is not leaked.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var wire *Error
	if stderrors.As(err, &wire) {
		return wire
	}

	var carrier rpcDataCarrier
	if stderrors.As(err, &carrier) {
		out := &Error{Message: err.Error(), Data: carrier.RPCData()}
		if coder, ok := carrier.(rpcCoder); ok {
			out.Code = coder.RPCCode()
		} else {
			out.Code = errors.RPCToolError
		}
		return out
	}

	if appErr, ok := errors.AsAppError(err); ok {
		out := &Error{Code: appErr.RPCCode(), Message: appErr.Message}
		if len(appErr.Details) > 0 {
			out.Data = appErr.Details
		}
		return out
	}

	return &Error{Code: errors.RPCInternalError, Message: "Internal error"}
}

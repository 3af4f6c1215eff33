package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Protocol errors
const (
	ErrCodeParseError     ErrorCode = "PARSE_ERROR"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeMethodNotFound ErrorCode = "METHOD_NOT_FOUND"
	// ErrCodeSessionNotFound indicates an unknown, closed or expired session.
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrCodeCancelled indicates the caller cancelled the request.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Validation errors
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Pipeline stage errors
const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAcquisition       ErrorCode = "ACQUISITION_ERROR"
	ErrCodeCodec             ErrorCode = "CODEC_ERROR"
	ErrCodeInference         ErrorCode = "INFERENCE_ERROR"
	ErrCodePersistence       ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeDependencyMissing ErrorCode = "DEPENDENCY_MISSING"
)

// Connection/Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Authentication errors
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
)

const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

// JSON-RPC 2.0 error codes. -32000 to -32099 are reserved for the server.
const (
	RPCParseError      = -32700
	RPCInvalidRequest  = -32600
	RPCMethodNotFound  = -32601
	RPCInvalidParams   = -32602
	RPCInternalError   = -32603
	RPCToolError       = -32000
	RPCSessionNotFound = -32001
	RPCUnauthorized    = -32002
	RPCRequestCanceled = -32800
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var rpcCodes = map[ErrorCode]int{
	ErrCodeParseError:      RPCParseError,
	ErrCodeInvalidRequest:  RPCInvalidRequest,
	ErrCodeMethodNotFound:  RPCMethodNotFound,
	ErrCodeInvalidInput:    RPCInvalidParams,
	ErrCodeMissingField:    RPCInvalidParams,
	ErrCodeInvalidFormat:   RPCInvalidParams,
	ErrCodeSessionNotFound: RPCSessionNotFound,
	ErrCodeCancelled:       RPCRequestCanceled,
	ErrCodeUnauthorized:    RPCUnauthorized,
	ErrCodeTokenExpired:    RPCUnauthorized,
	ErrCodeInvalidToken:    RPCUnauthorized,
	ErrCodeForbidden:       RPCUnauthorized,
	ErrCodeInternal:        RPCInternalError,
}

// RPCCodeFor maps an error code to its JSON-RPC error code. Stage and
// collaborator failures all surface as -32000.
func RPCCodeFor(code ErrorCode) int {
	if c, ok := rpcCodes[code]; ok {
		return c
	}
	return RPCToolError
}

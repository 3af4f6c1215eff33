// Package errors provides the structured error type shared by the protocol
// layer and the transcription pipeline. Each AppError carries a
// machine-readable code that maps to both an HTTP status and a JSON-RPC
// error code.
package errors

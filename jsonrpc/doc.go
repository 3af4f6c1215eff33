// Package jsonrpc is the JSON-RPC 2.0 envelope shared by every channel:
// decoding of request frames, encoding of responses and notifications,
// and the mapping of application errors to wire error objects.
//
// Batches are not supported; a batch frame is answered with
// -32600 invalid request.
package jsonrpc

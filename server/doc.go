// Package server hosts the HTTP channel: a Gin engine served over h2c
// (cleartext HTTP/2) so one connection can carry many long-lived event
// streams.
//
// Middleware (server/middleware): panic recovery, request ids, CORS for
// browser clients, body size limits, request logging and bearer JWT
// authentication. Endpoints (server/endpoint): /health aggregates the
// component registry, /info reports build and runtime details.
package server

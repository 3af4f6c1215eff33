// Package bootstrap runs the server's lifecycle: typed config, logger
// setup, component start in registration order, configure callbacks,
// ready check, startup summary, and graceful shutdown in reverse order.
//
// Run blocks until SIGINT/SIGTERM and suits the HTTP transport. RunTask
// runs a finite task and suits the stdio transport, which ends when stdin
// reaches EOF.
package bootstrap

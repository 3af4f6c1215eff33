// Package component defines the lifecycle contract shared by the server's
// long-lived parts and a registry that starts and stops them in order.
package component

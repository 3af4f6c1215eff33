// Package resilience provides the two fault-handling primitives the server
// uses: Bulkhead bounds concurrent inference runs, and Retry re-attempts
// model downloads with exponential backoff. Media acquisition is never
// retried.
package resilience

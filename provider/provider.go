package provider

import "context"

// Provider identifies a pluggable backend.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can serve requests right now,
	// e.g. its binary is installed or its sidecar answers.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a T from backend-neutral settings S.
type Factory[S any, T Provider] func(settings S) (T, error)

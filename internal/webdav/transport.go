// Package webdav abstracts the remote file store behind a narrow
// transport contract. No retry or conflict logic lives above this
// package's adapter; the reconciliation engine only sees the Transport
// interface and the error taxonomy.
package webdav

import (
	"context"
	"errors"
)

// Transport is the minimal remote-store contract the sync engine
// consumes. Implementations must make Mkdir idempotent and Remove
// recursive for directories.
type Transport interface {
	// Ping verifies connectivity and authentication.
	Ping(ctx context.Context) error
	// Read returns the content at path, or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write creates or overwrites the file at path.
	Write(ctx context.Context, path string, data []byte) error
	// Mkdir creates a collection; succeeds if it already exists.
	Mkdir(ctx context.Context, path string) error
	// Remove deletes a file or directory tree.
	Remove(ctx context.Context, path string) error
}

// Error taxonomy. ErrAuth and ErrUnreachable during the initial ping are
// fatal for a sync run; anything else is scoped to one entity.
var (
	// ErrNotFound marks a read of an absent remote path.
	ErrNotFound = errors.New("remote path not found")
	// ErrAuth marks an authentication or authorization failure.
	ErrAuth = errors.New("authentication failed")
	// ErrUnreachable marks a server that cannot be reached at all.
	ErrUnreachable = errors.New("server unreachable")
)

// Kind buckets a transport error for the engine's fatal/recoverable
// decision.
type Kind int

const (
	// KindTransient covers timeouts and single-operation failures that
	// are limited to one entity.
	KindTransient Kind = iota
	// KindNotFound covers reads of absent paths.
	KindNotFound
	// KindAuth covers credential rejection.
	KindAuth
	// KindUnreachable covers connection-level failures.
	KindUnreachable
)

// Classify buckets any transport error into the taxonomy.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrUnreachable):
		return KindUnreachable
	default:
		return KindTransient
	}
}

// Fatal reports whether the error aborts a whole run when it occurs
// during the initial connect step.
func Fatal(err error) bool {
	k := Classify(err)
	return k == KindAuth || k == KindUnreachable
}

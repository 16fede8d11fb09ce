// Package rpcerr defines the typed error taxonomy shared by the server and
// client halves of jg-rpc (see spec §7). Every error the runtime can surface
// to an embedding program is one of these sentinels, wrapped with context via
// fmt.Errorf("...: %w", ...) so callers can still errors.Is/errors.As through
// middleware and transport layers.
package rpcerr

import "errors"

// Connection/frame-fatal errors. A connection that produces one of these is
// torn down; any pending calls on it are failed with a CallFailed of
// KindConnectionLost.
var (
	ErrInvalidFrame     = errors.New("invalid frame")
	ErrUnknownSerializer = errors.New("unknown serializer")
	ErrFrameTooLarge    = errors.New("frame too large")
)

// Per-call errors. These never kill the connection; they are surfaced as a
// failed response (server side) or a CallFailed (client side).
var (
	ErrServiceNotFound = errors.New("service not found")
	ErrMethodNotFound  = errors.New("method not found")
	ErrInvocationFailed = errors.New("invocation failed")
)

// Client-side call-failure kinds (spec §7 "CallFailed { kind: ... }").
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindConnect
	KindNoProvider
	KindConnectionLost
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "Timeout"
	case KindConnect:
		return "Connect"
	case KindNoProvider:
		return "NoProvider"
	case KindConnectionLost:
		return "ConnectionLost"
	case KindServer:
		return "Server"
	default:
		return "Unknown"
	}
}

// CallFailed is the single error shape a client ever observes for a failed
// call (spec §7 propagation policy: "single CallFailed with a kind
// discriminator and a message; no partial success").
type CallFailed struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CallFailed) Error() string {
	if e.Message != "" {
		return "jg-rpc: call failed (" + e.Kind.String() + "): " + e.Message
	}
	return "jg-rpc: call failed (" + e.Kind.String() + ")"
}

func (e *CallFailed) Unwrap() error { return e.Cause }

func NewCallFailed(kind Kind, msg string, cause error) *CallFailed {
	return &CallFailed{Kind: kind, Message: msg, Cause: cause}
}

// DirectoryError wraps a failure from the directory adapter (spec §4.3). On
// register-at-startup it is fatal; on deregister-at-shutdown it is logged
// and continues, never propagated as a DirectoryError further up.
type DirectoryError struct {
	Op    string
	Cause error
}

func (e *DirectoryError) Error() string {
	return "jg-rpc: directory " + e.Op + ": " + e.Cause.Error()
}

func (e *DirectoryError) Unwrap() error { return e.Cause }

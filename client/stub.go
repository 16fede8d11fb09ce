// stub.go implements the generalized stub factory of spec §4.7. Go has no
// runtime proxies (spec §9's design note), so the "transparent callable" is
// expressed as a small Stub type wrapping the single CallRemote entry point;
// a per-interface typed wrapper is hand-written the way a code generator
// would emit it, calling Stub.Call or Stub.CallAsync and unmarshalling the
// result into its own concrete reply type.
package client

import (
	"context"

	"github.com/WeiJinUp/jg-rpc/async"
)

// Stub is bound to one interface name and the engine used to reach it.
type Stub struct {
	engine *Engine
	iface  string
}

// NewStub returns a stub for iface over engine.
func NewStub(engine *Engine, iface string) *Stub {
	return &Stub{engine: engine, iface: iface}
}

func argTypesOf(args []any) []string {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = TypeDescriptor(a)
	}
	return types
}

// Call performs a synchronous invocation: it blocks until the reply arrives
// (or the call fails) and unmarshals the result into out. This is the path a
// generated wrapper takes whenever the declared method return type is a
// concrete value rather than a future handle (spec §4.7 step 4, "sync...
// blocks on the handle internally and returns the unwrapped value").
func (s *Stub) Call(ctx context.Context, method string, out any, args ...any) error {
	resp, err := s.engine.CallRemote(ctx, s.iface, method, args, argTypesOf(args))
	if err != nil {
		return err
	}
	return UnmarshalResult(resp, out)
}

// CallAsync performs the invocation in the background and returns a Future
// immediately — the path a generated wrapper takes when the declared return
// type is a future-like handle (spec §4.7 step 4, "async... returns the
// handle immediately"). The future completes with the same raw
// *message.Response Call would have unmarshalled from; callers use
// client.UnmarshalResult on the resolved value.
func (s *Stub) CallAsync(ctx context.Context, method string, args ...any) *async.Future {
	future := async.New()
	go func() {
		resp, err := s.engine.CallRemote(ctx, s.iface, method, args, argTypesOf(args))
		future.Complete(resp, err)
	}()
	return future
}

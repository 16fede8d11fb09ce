package server

import (
	"context"
	"fmt"
	"reflect"

	"github.com/WeiJinUp/jg-rpc/async"
)

// methodType stores the reflection metadata for one RPC-compatible method,
// generalizing the teacher's own methodType to also recognize the async
// shape from spec §4.5/§4.9's design note on future-like return types.
//
// Two method shapes are recognized, both taking a context.Context as their
// first parameter (the teacher's shape has none — added here so a handler
// can observe the per-call or drain-shutdown deadline, the same grafting
// spec §5's "suspension points" calls for):
//
//	func (recv) M(ctx context.Context, args *Args, reply *Reply) error
//	func (recv) M(ctx context.Context, args *Args) (*async.Future, error)
type methodType struct {
	method    reflect.Method
	ArgType   reflect.Type // element type, e.g. Args (not *Args)
	ReplyType reflect.Type // element type for sync methods; nil for async
	Async     bool
}

// ArgTypeDescriptor is the fully-qualified type name used to validate the
// caller's per-argument type descriptor against this method's registered
// signature (spec §3 "argument type descriptors... disambiguate overloaded
// methods").
func (m *methodType) ArgTypeDescriptor() string {
	return typeDescriptor(m.ArgType)
}

func typeDescriptor(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// service wraps one registered implementation and its RPC-compatible
// methods, keyed by the interface name the implementation was published
// under (spec §3: "server-side service map... keyed by interface name
// exactly as sent by the client").
type service struct {
	name   string
	rcvr   reflect.Value
	typ    reflect.Type
	method map[string]*methodType
}

var (
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	futureType = reflect.TypeOf((*async.Future)(nil))
)

// newService validates rcvr and scans its exported methods for the two
// recognized RPC shapes. Methods matching neither shape are silently
// skipped, same as the teacher's RegisterMethods.
func newService(ifaceName string, rcvr any) (*service, error) {
	if rcvr == nil {
		return nil, fmt.Errorf("server: register: implementation is nil")
	}
	typ := reflect.TypeOf(rcvr)
	if typ.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("server: register: rcvr must be a pointer, got %s", typ.Kind())
	}
	if typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("server: register: rcvr must point to a struct, got %s", typ.Elem().Kind())
	}

	svc := &service{
		name:   ifaceName,
		rcvr:   reflect.ValueOf(rcvr),
		typ:    typ,
		method: make(map[string]*methodType),
	}
	svc.scanMethods()
	if len(svc.method) == 0 {
		return nil, fmt.Errorf("server: register: %s satisfies no RPC-compatible method", ifaceName)
	}
	return svc, nil
}

func (s *service) scanMethods() {
	for i := 0; i < s.typ.NumMethod(); i++ {
		m := s.typ.Method(i)
		mt := m.Type

		// Sync shape: (recv, ctx, *Args, *Reply) -> error
		if mt.NumIn() == 4 && mt.NumOut() == 1 &&
			mt.In(1) == ctxType &&
			mt.In(2).Kind() == reflect.Ptr &&
			mt.In(3).Kind() == reflect.Ptr &&
			mt.Out(0) == errorType {
			s.method[m.Name] = &methodType{
				method:    m,
				ArgType:   mt.In(2).Elem(),
				ReplyType: mt.In(3).Elem(),
			}
			continue
		}

		// Async shape: (recv, ctx, *Args) -> (*async.Future, error)
		if mt.NumIn() == 3 && mt.NumOut() == 2 &&
			mt.In(1) == ctxType &&
			mt.In(2).Kind() == reflect.Ptr &&
			mt.Out(0) == futureType &&
			mt.Out(1) == errorType {
			s.method[m.Name] = &methodType{
				method:  m,
				ArgType: mt.In(2).Elem(),
				Async:   true,
			}
		}
	}
}

// callSync invokes a sync-shaped method, which fills replyv in place, and
// returns the method's error.
func (s *service) callSync(ctx context.Context, mt *methodType, argv, replyv reflect.Value) error {
	args := []reflect.Value{s.rcvr, reflect.ValueOf(ctx), argv, replyv}
	results := mt.method.Func.Call(args)
	if errv := results[0]; !errv.IsNil() {
		return errv.Interface().(error)
	}
	return nil
}

// callAsync invokes an async-shaped method and returns its future.
func (s *service) callAsync(ctx context.Context, mt *methodType, argv reflect.Value) (*async.Future, error) {
	args := []reflect.Value{s.rcvr, reflect.ValueOf(ctx), argv}
	results := mt.method.Func.Call(args)
	future, _ := results[0].Interface().(*async.Future)
	var err error
	if errv := results[1]; !errv.IsNil() {
		err = errv.Interface().(error)
	}
	return future, err
}

// Package server implements the dispatch engine of spec §4.5: it accepts
// TCP connections, decodes frames, resolves a registered implementation by
// interface name, invokes the matching method, and encodes the reply. It
// also provides the publish/shutdown facade of spec §4.8 for servers backed
// by a directory.
//
// Connection handling follows the teacher's own model: one goroutine per
// connection reads frames sequentially (frame boundaries require a single
// reader), and every decoded request is dispatched to its own goroutine so a
// slow handler never blocks the rest of that connection's traffic. This is
// the Go-idiomatic rendering of spec §5's "one acceptor worker; a pool of N
// I/O workers" — goroutines ARE the I/O workers here, scheduled by the Go
// runtime instead of by a hand-rolled worker pool.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/WeiJinUp/jg-rpc/async"
	"github.com/WeiJinUp/jg-rpc/codec"
	"github.com/WeiJinUp/jg-rpc/directory"
	"github.com/WeiJinUp/jg-rpc/frame"
	"github.com/WeiJinUp/jg-rpc/internal/jlog"
	"github.com/WeiJinUp/jg-rpc/message"
	"github.com/WeiJinUp/jg-rpc/middleware"
	"github.com/WeiJinUp/jg-rpc/rpcerr"
)

const (
	// acceptBacklog records an accept backlog of 128. Serve does not apply
	// it: net.Listen takes no backlog argument, so the listener uses the
	// operating system's default backlog.
	acceptBacklog = 128

	// defaultIdleTimeout is the per-connection read-idle timer (spec §4.5).
	defaultIdleTimeout = 30 * time.Second

	// defaultSerializerTag is the JSON tag. The dispatch path does not refer
	// to it: handleConn closes a connection whose request frame carries an
	// unknown tag, and handleRequest sends no reply in that case.
	defaultSerializerTag = codec.TagJSON
)

// Option configures a Server.
type Option func(*Server)

// WithLogger installs a zap logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = jlog.OrNop(l) }
}

// WithIdleTimeout overrides the 30s per-connection read-idle timer.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idleTimeout = d }
}

// WithAcceptRateLimit throttles the acceptor loop with a token bucket,
// protecting the dispatcher and directory from connection storms — an
// accept-time use of the same golang.org/x/time/rate dependency the
// teacher's per-call RateLimitMiddleware already pulls in.
func WithAcceptRateLimit(r float64, burst int) Option {
	return func(s *Server) { s.acceptLimiter = rate.NewLimiter(rate.Limit(r), burst) }
}

// WithMiddleware appends a middleware to the dispatch chain, applied in the
// order added (spec §4.5's handler sits innermost).
func WithMiddleware(mw middleware.Middleware) Option {
	return func(s *Server) { s.middlewares = append(s.middlewares, mw) }
}

// Server is the RPC dispatch engine: a service map plus a connection
// acceptor (spec §4.5).
type Server struct {
	mu          sync.RWMutex
	services    map[string]*service // interface name -> service, append-only after Serve starts
	listener    net.Listener
	wg          sync.WaitGroup // tracks in-flight requests for graceful shutdown
	shuttingDown atomic.Bool

	middlewares   []middleware.Middleware
	handler       middleware.HandlerFunc
	idleTimeout   time.Duration
	acceptLimiter *rate.Limiter
	log           *zap.Logger
}

// New creates a dispatch engine with an empty service map.
func New(opts ...Option) *Server {
	s := &Server{
		services:    make(map[string]*service),
		idleTimeout: defaultIdleTimeout,
		log:         jlog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records impl under ifaceName (spec §4.5 "Registration"). impl
// must be a pointer to a struct exposing at least one RPC-compatible method
// (server/service.go); registering nil or an implementation with no
// RPC-compatible methods fails.
func (s *Server) Register(ifaceName string, impl any) error {
	svc, err := newService(ifaceName, impl)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.services[ifaceName] = svc
	s.mu.Unlock()
	return nil
}

// Serve binds address and blocks accepting connections until the listener
// closes (via Shutdown or a transport error). The middleware chain is built
// once, here, not per-request.
func (s *Server) Serve(network, address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	s.listener = listener
	s.handler = middleware.Chain(s.middlewares...)(s.dispatch)

	for {
		if s.acceptLimiter != nil {
			if err := s.acceptLimiter.Wait(context.Background()); err != nil {
				return err
			}
		}
		conn, err := listener.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return nil
			}
			return err
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true) // small-message latency dominates throughput, spec §4.5
			tcpConn.SetKeepAlive(true)
		}
		go s.handleConn(conn)
	}
}

// Addr returns the bound address, valid only after Serve has started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	var writeMu sync.Mutex // shared per-connection write lock (spec §5: "serialised per-connection")

	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		header, body, err := frame.Decode(conn)
		if err != nil {
			return // idle timeout, EOF, or a connection-fatal frame error
		}

		if header.Kind == frame.KindRequest || header.Kind == frame.KindHeartbeatRequest {
			if _, err := codec.Get(header.SerializerTag); err != nil {
				// Unknown serializer tag is connection-fatal (spec §7).
				s.log.Warn("closing connection on unknown serializer tag", zap.Error(err))
				return
			}
		}

		switch header.Kind {
		case frame.KindHeartbeatRequest:
			s.writeHeartbeatReply(conn, &writeMu, header.SerializerTag)
		case frame.KindRequest:
			go s.handleRequest(header, body, conn, &writeMu)
		default:
			// Responses/heartbeat-responses never arrive on a server
			// connection; ignore rather than tearing down the connection.
		}
	}
}

func (s *Server) writeHeartbeatReply(conn net.Conn, writeMu *sync.Mutex, tag byte) {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = frame.Encode(conn, &frame.Header{SerializerTag: tag, Kind: frame.KindHeartbeatResponse}, nil)
}

// handleRequest decodes, dispatches through the middleware chain, and writes
// the reply, tracked by wg so Shutdown can drain in-flight work.
func (s *Server) handleRequest(header *frame.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	s.wg.Add(1)
	defer s.wg.Done()

	serializer, err := codec.Get(header.SerializerTag)
	if err != nil {
		s.log.Warn("unknown serializer on request frame", zap.Error(err))
		return
	}

	var req message.Request
	if err := serializer.Decode(body, &req); err != nil {
		s.log.Warn("failed to decode request envelope", zap.Error(err))
		return
	}

	resp := s.handler(context.Background(), &req)
	resp.CorrelationID = req.CorrelationID // §4.5: always echo, even on early-return paths

	respBody, err := serializer.Encode(resp)
	if err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	replyHeader := &frame.Header{
		SerializerTag: header.SerializerTag,
		Kind:          frame.KindResponse,
		BodyLen:       uint32(len(respBody)),
	}
	if err := frame.Encode(conn, replyHeader, respBody); err != nil {
		s.log.Warn("failed to write response frame", zap.Error(err))
	}
}

// dispatch is the innermost handler: interface/method lookup, reflective
// invocation, and response wrapping (spec §4.5).
func (s *Server) dispatch(ctx context.Context, req *message.Request) *message.Response {
	s.mu.RLock()
	svc, ok := s.services[req.Interface]
	s.mu.RUnlock()
	if !ok {
		return &message.Response{Error: fmt.Sprintf("Service not found: %s", req.Interface)}
	}

	mt, ok := svc.method[req.Method]
	if !ok {
		return &message.Response{Error: fmt.Sprintf("%s: %s.%s", rpcerr.ErrMethodNotFound, req.Interface, req.Method)}
	}
	if len(req.ArgTypes) > 0 && req.ArgTypes[0] != mt.ArgTypeDescriptor() {
		return &message.Response{Error: fmt.Sprintf("%s: %s.%s(%s)", rpcerr.ErrMethodNotFound, req.Interface, req.Method, req.ArgTypes[0])}
	}

	argv := reflect.New(mt.ArgType)
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args[0], argv.Interface()); err != nil {
			return &message.Response{Error: err.Error()}
		}
	}

	if mt.Async {
		future, err := svc.callAsync(ctx, mt, argv)
		if err != nil {
			return &message.Response{Error: err.Error()}
		}
		// Block this dispatch goroutine (not an I/O worker — it was spawned
		// specifically for this request in handleConn) until the
		// implementation's future resolves, per spec §4.5's first
		// conforming option.
		result, err := future.Wait()
		if err != nil {
			return &message.Response{Error: err.Error()}
		}
		resultBytes, err := json.Marshal(result)
		if err != nil {
			return &message.Response{Error: err.Error()}
		}
		return &message.Response{Result: resultBytes, Success: true}
	}

	replyv := reflect.New(mt.ReplyType)
	if err := svc.callSync(ctx, mt, argv, replyv); err != nil {
		return &message.Response{Error: err.Error()}
	}
	resultBytes, err := json.Marshal(replyv.Interface())
	if err != nil {
		return &message.Response{Error: err.Error()}
	}
	return &message.Response{Result: resultBytes, Success: true}
}

// Shutdown stops accepting new connections and waits up to timeout for
// in-flight requests to finish (spec §4.5 "Lifecycle"). It does not touch
// the directory — see Facade.Shutdown for the publish/unpublish/drain/close
// sequence of spec §4.8.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.shuttingDown.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server: shutdown: timed out waiting for in-flight requests")
	}
}

// Facade composes the dispatch engine with a service directory, implementing
// the publish/shutdown lifecycle of spec §4.8.
type Facade struct {
	*Server
	dir        directory.Directory
	endpoint   directory.Endpoint
	drain      time.Duration
	shutdownTO time.Duration
	log        *zap.Logger

	mu         sync.Mutex
	published  []string // interfaces published at the directory; Shutdown removes them via dir.UnregisterAll and does not read this list
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithDrainInterval overrides the default 5s drain window between
// unpublishing and closing the listener (spec §4.8 step 2).
func WithDrainInterval(d time.Duration) FacadeOption {
	return func(f *Facade) { f.drain = d }
}

// WithShutdownTimeout bounds how long Facade.Shutdown waits for in-flight
// requests to finish after the drain interval elapses.
func WithShutdownTimeout(d time.Duration) FacadeOption {
	return func(f *Facade) { f.shutdownTO = d }
}

// NewFacade wraps srv with dir, publishing under endpoint on Publish and
// cleaning up from endpoint on Shutdown.
func NewFacade(srv *Server, dir directory.Directory, endpoint directory.Endpoint, opts ...FacadeOption) *Facade {
	f := &Facade{
		Server:     srv,
		dir:        dir,
		endpoint:   endpoint,
		drain:      5 * time.Second,
		shutdownTO: 10 * time.Second,
		log:        srv.log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish registers ifaceName locally (replacing any earlier registration
// under that name) and announces
// (ifaceName, own endpoint) at the directory (spec §4.8 "On publish(impl)").
// A directory failure at publish time is fatal — propagated to the caller
// to abort startup (spec §7 "DirectoryError... On register at startup:
// propagate and abort startup").
func (f *Facade) Publish(ifaceName string, impl any) error {
	if err := f.Register(ifaceName, impl); err != nil {
		return err
	}
	if err := f.dir.Register(ifaceName, f.endpoint); err != nil {
		return &rpcerr.DirectoryError{Op: "publish", Cause: err}
	}
	f.mu.Lock()
	f.published = append(f.published, ifaceName)
	f.mu.Unlock()
	return nil
}

// Shutdown runs the sequence of spec §4.8: unregister-all at the directory
// (so new discoveries stop seeing this server), sleep for the drain
// interval so in-flight requests finish, then close the dispatcher.
func (f *Facade) Shutdown() error {
	if err := f.dir.UnregisterAll(f.endpoint); err != nil {
		f.log.Warn("directory unregister_all failed during shutdown", zap.Error(err))
	}
	time.Sleep(f.drain)
	return f.Server.Shutdown(f.shutdownTO)
}

package client

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WeiJinUp/jg-rpc/codec"
	"github.com/WeiJinUp/jg-rpc/frame"
	"github.com/WeiJinUp/jg-rpc/message"
)

// heartbeatInterval matches the teacher's ClientTransport heartbeat cadence,
// kept well under the server's 30s idle-read timeout (spec §4.5).
const heartbeatInterval = 20 * time.Second

// transport owns one multiplexed TCP connection to a single backend. Many
// concurrent calls share it: each gets a unique correlation id, and a single
// background goroutine (recvLoop) reads responses and routes them back by
// that id — the same design as the teacher's ClientTransport, generalized
// from a uint32 header sequence number to the spec's string correlation id
// carried inside the body.
type transport struct {
	conn          net.Conn
	serializerTag byte
	log           *zap.Logger

	sendMu sync.Mutex // serializes writes to conn (spec §5)

	pending sync.Map // correlationID string -> chan *message.Response (buffered, capacity 1)

	closeOnce sync.Once
	closed    chan struct{}
}

func newTransport(conn net.Conn, serializerTag byte, log *zap.Logger) *transport {
	t := &transport{
		conn:          conn,
		serializerTag: serializerTag,
		log:           log,
		closed:        make(chan struct{}),
	}
	go t.recvLoop()
	go t.heartbeatLoop()
	return t
}

// send writes req as a request frame and registers a response channel for
// its correlation id BEFORE writing, so a reply racing the write can never
// be missed (spec §4.6 step 4: "insert it keyed by correlation id BEFORE
// writing").
func (t *transport) send(req *message.Request) (<-chan *message.Response, error) {
	serializer, err := codec.Get(t.serializerTag)
	if err != nil {
		return nil, err
	}
	body, err := serializer.Encode(req)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *message.Response, 1)
	t.pending.Store(req.CorrelationID, respCh)

	t.sendMu.Lock()
	err = frame.Encode(t.conn, &frame.Header{SerializerTag: t.serializerTag, Kind: frame.KindRequest}, body)
	t.sendMu.Unlock()
	if err != nil {
		t.pending.Delete(req.CorrelationID)
		return nil, err
	}
	return respCh, nil
}

// cancel removes a pending entry, used by the caller on timeout so a late
// reply has nowhere to deliver to (spec §4.6 step 6).
func (t *transport) cancel(correlationID string) {
	t.pending.Delete(correlationID)
}

func (t *transport) recvLoop() {
	defer t.shutdown()
	for {
		header, body, err := frame.Decode(t.conn)
		if err != nil {
			return
		}
		switch header.Kind {
		case frame.KindHeartbeatResponse:
			continue
		case frame.KindResponse:
			t.routeResponse(header.SerializerTag, body)
		default:
			// requests/heartbeat-requests never arrive on a client connection
		}
	}
}

func (t *transport) routeResponse(tag byte, body []byte) {
	serializer, err := codec.Get(tag)
	if err != nil {
		t.log.Warn("unknown serializer on response frame", zap.Error(err))
		return
	}
	var resp message.Response
	if err := serializer.Decode(body, &resp); err != nil {
		t.log.Warn("failed to decode response envelope", zap.Error(err))
		return
	}

	v, ok := t.pending.LoadAndDelete(resp.CorrelationID)
	if !ok {
		// Late or duplicate reply — the caller already timed out and moved
		// on (spec §4.6 reply protocol step 3: "log and drop").
		t.log.Debug("dropping reply with no pending caller", zap.String("correlation_id", resp.CorrelationID))
		return
	}
	ch := v.(chan *message.Response)
	ch <- &resp
}

// shutdown fails every still-pending call on this connection with
// ConnectionLost (spec §7: "any pending calls on a client-side connection
// thus closed MUST be failed with ConnectionLost rather than left hanging").
func (t *transport) shutdown() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.pending.Range(func(key, value any) bool {
			ch := value.(chan *message.Response)
			ch <- &message.Response{Error: "connection lost", CorrelationID: key.(string)}
			t.pending.Delete(key)
			return true
		})
	})
}

func (t *transport) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.closed:
			return
		case <-ticker.C:
			t.sendMu.Lock()
			err := frame.Encode(t.conn, &frame.Header{SerializerTag: t.serializerTag, Kind: frame.KindHeartbeatRequest}, nil)
			t.sendMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (t *transport) Close() error {
	t.shutdown()
	return t.conn.Close()
}

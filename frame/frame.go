// Package frame implements the jg-rpc wire frame: a fixed 11-byte header
// followed by a variable-length body. It solves TCP's sticky-packet problem
// the same way the teacher codec does — a length-prefixed header read first,
// then exactly that many body bytes — but the header layout, magic number,
// and size limits are pinned to the wire contract of spec §3/§6:
//
//	0        4  5  6  7            11
//	┌────────┬──┬──┬──┬────────────┬───────────────┐
//	│ magic  │v │st│mk│  bodyLen   │    body ...   │
//	│uint32  │01│  │  │  uint32    │ bodyLen bytes │
//	└────────┴──┴──┴──┴────────────┴───────────────┘
//
// magic is 0xCAFEBABE, version is 1, st is the serializer tag (codec.Tag),
// mk is the message kind, and bodyLen is capped at MaxBodyLen (16 MiB). The
// correlation id does NOT live in the header — per spec §4.1 it rides inside
// the body as a field of the request/response record.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/WeiJinUp/jg-rpc/rpcerr"
)

const (
	// Magic identifies a jg-rpc frame so mis-routed connections (e.g. an
	// HTTP client hitting the wrong port) fail fast instead of hanging a
	// dispatch worker on a partial read.
	Magic uint32 = 0xCAFEBABE

	// Version is the only wire version this implementation speaks. Spec §9
	// reserves bumping this to 2 for any breaking change to the type
	// descriptor wire shape.
	Version byte = 1

	// HeaderSize is the fixed header length: 4 (magic) + 1 (version) +
	// 1 (serializer tag) + 1 (message kind) + 4 (body length).
	HeaderSize = 11

	// MaxBodyLen is the hard cap on body length (spec §3, §6): 16 MiB.
	MaxBodyLen uint32 = 16 * 1024 * 1024
)

// Kind distinguishes request, response, and heartbeat frames (spec §3).
type Kind byte

const (
	KindRequest           Kind = 1
	KindResponse          Kind = 2
	KindHeartbeatRequest  Kind = 3
	KindHeartbeatResponse Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindHeartbeatRequest:
		return "heartbeat-request"
	case KindHeartbeatResponse:
		return "heartbeat-response"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

func validKind(b byte) bool {
	switch Kind(b) {
	case KindRequest, KindResponse, KindHeartbeatRequest, KindHeartbeatResponse:
		return true
	default:
		return false
	}
}

// Header is the fixed 11-byte frame header.
type Header struct {
	SerializerTag byte   // identifies the body codec, see codec.Tag
	Kind          Kind   // request, response, or heartbeat
	BodyLen       uint32 // body length in bytes
}

// Encode writes one complete frame (header + body) to w. body may be nil
// (heartbeat frames have no body). The caller must serialize concurrent
// writers of a shared w itself — frame does not take a lock, the same
// contract the teacher's protocol.Encode has ("caller must hold a write
// lock if multiple goroutines share the same writer").
func Encode(w io.Writer, h *Header, body []byte) error {
	if uint32(len(body)) > MaxBodyLen {
		return fmt.Errorf("%w: body length %d exceeds %d", rpcerr.ErrFrameTooLarge, len(body), MaxBodyLen)
	}

	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	buf[4] = Version
	buf[5] = h.SerializerTag
	buf[6] = byte(h.Kind)
	binary.BigEndian.PutUint32(buf[7:11], uint32(len(body)))

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads exactly one complete frame from r, blocking until 11 +
// body-length bytes are available. It never returns a partial message: a
// short read on the header or body surfaces as the underlying io error (most
// commonly io.ErrUnexpectedEOF via io.ReadFull), and a structurally invalid
// header (bad magic, bad version, oversize body) surfaces as
// rpcerr.ErrInvalidFrame / rpcerr.ErrFrameTooLarge without consuming bytes
// past the header (spec P2: "without consuming bytes past the offending
// frame boundary").
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	magic := binary.BigEndian.Uint32(headerBuf[0:4])
	if magic != Magic {
		return nil, nil, fmt.Errorf("%w: bad magic %#x", rpcerr.ErrInvalidFrame, magic)
	}
	if headerBuf[4] != Version {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", rpcerr.ErrInvalidFrame, headerBuf[4])
	}
	if !validKind(headerBuf[6]) {
		return nil, nil, fmt.Errorf("%w: unsupported message kind %d", rpcerr.ErrInvalidFrame, headerBuf[6])
	}

	bodyLen := binary.BigEndian.Uint32(headerBuf[7:11])
	if bodyLen > MaxBodyLen {
		return nil, nil, fmt.Errorf("%w: body length %d exceeds %d", rpcerr.ErrFrameTooLarge, bodyLen, MaxBodyLen)
	}

	h := &Header{
		SerializerTag: headerBuf[5],
		Kind:          Kind(headerBuf[6]),
		BodyLen:       bodyLen,
	}

	if bodyLen == 0 {
		return h, nil, nil
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}
	return h, body, nil
}

// Package message defines the Request and Response records exchanged between
// client and server (spec §3). They are the "envelope" every call travels
// in: serialized by the codec package's body serializer and wrapped in a
// frame.Header for transmission.
//
// Argument and result *values* are always carried as pre-encoded JSON bytes,
// independent of which outer serializer tag is in effect for the envelope
// itself. This mirrors the teacher's BinaryCodec, whose own doc comment notes
// "the payload itself (args/reply) is still JSON-encoded... the performance
// gain comes from encoding the outer RPCMessage fields in binary instead of
// JSON" — generalized here from one Payload field to an ordered Args list
// plus ArgTypes, and the response's single Result.
package message

import "encoding/json"

// Request carries one outbound call.
//
// ArgTypes disambiguates overloaded methods on the server: it is an ordered
// list of type descriptors, one per entry in Args, carried alongside the
// values themselves (spec §3 "argument type descriptors"). Per spec §9 this
// is pinned to "fully-qualified type name as string" as part of the wire
// contract.
type Request struct {
	Interface     string            `json:"interface"`
	Method        string            `json:"method"`
	Args          []json.RawMessage `json:"args"`
	ArgTypes      []string          `json:"argTypes"`
	CorrelationID string            `json:"correlationId"`
}

// Response carries one inbound reply.
type Response struct {
	Result        json.RawMessage `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
	Success       bool            `json:"success"`
	CorrelationID string          `json:"correlationId"`
}

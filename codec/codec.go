// Package codec provides the pluggable body serializer layer (spec §4.2).
// It defines the Serializer capability set and a process-wide registry keyed
// by the one-byte wire tag carried in the frame header (spec §3, §6):
//
//	tag 0  native-object serializer  (encoding/gob — max fidelity)
//	tag 1  textual JSON serializer   (encoding/json — debuggable, cross-language)
//	tag 2  reserved (compact schema codec)
//	tag 3  reserved (binary object-graph codec)
//
// This is the same Strategy-pattern split the teacher's codec package uses
// (JSONCodec / BinaryCodec behind a Codec interface keyed by CodecType); the
// tag values and the set of mandatory variants are generalized to match the
// wire contract of spec §6 instead of the teacher's own two-codec scheme.
package codec

import (
	"fmt"
	"sync"

	"github.com/WeiJinUp/jg-rpc/rpcerr"
)

// Wire tags, fixed by spec §6.
const (
	TagNative byte = 0
	TagJSON   byte = 1
	// TagCompactSchema and TagBinaryGraph (2, 3) are reserved by the wire
	// contract but not implemented by this module; see DESIGN.md.
)

// Serializer marshals a message envelope (message.Request or
// message.Response) to and from bytes.
type Serializer interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Tag() byte
}

var (
	mu       sync.RWMutex
	registry = map[byte]Serializer{
		TagNative: &NativeSerializer{},
		TagJSON:   &JSONSerializer{},
	}
)

// Register adds or replaces the serializer for a tag. Registration is
// process-wide; last registration wins (spec §4.2).
func Register(s Serializer) {
	mu.Lock()
	defer mu.Unlock()
	registry[s.Tag()] = s
}

// Get looks up the serializer for tag, failing with rpcerr.ErrUnknownSerializer
// if none is registered (spec §4.2, §7: fatal to the connection).
func Get(tag byte) (Serializer, error) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("%w: tag %d", rpcerr.ErrUnknownSerializer, tag)
	}
	return s, nil
}

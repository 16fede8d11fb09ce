package codec

import (
	"bytes"
	"encoding/gob"
)

// NativeSerializer is the language's richest opaque object-graph encoder
// (spec §4.2 tag 0), used for maximum fidelity between two Go processes.
// encoding/gob is the standard library's own "native object serializer" —
// the natural choice here because message.Request and message.Response carry
// only concrete field types (strings and raw JSON byte slices), so no
// gob.Register step is needed for the envelope itself; see DESIGN.md for why
// no third-party binary codec from the retrieval pack was reached for
// instead.
type NativeSerializer struct{}

func (s *NativeSerializer) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *NativeSerializer) Decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (s *NativeSerializer) Tag() byte { return TagNative }

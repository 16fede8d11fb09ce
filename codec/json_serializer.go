package codec

import "encoding/json"

// JSONSerializer is the textual, debuggable, cross-language-stable codec
// (spec §4.2 tag 1). It is a direct generalization of the teacher's
// JSONCodec, which wraps encoding/json without modification.
type JSONSerializer struct{}

func (s *JSONSerializer) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s *JSONSerializer) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (s *JSONSerializer) Tag() byte { return TagJSON }

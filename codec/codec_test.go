package codec

import (
	"encoding/json"
	"testing"

	"github.com/WeiJinUp/jg-rpc/message"
)

func roundTrip(t *testing.T, s Serializer) {
	t.Helper()
	original := &message.Request{
		Interface:     "demo.Hello",
		Method:        "Hello",
		Args:          []json.RawMessage{json.RawMessage(`"world"`)},
		ArgTypes:      []string{"string"},
		CorrelationID: "1-42",
	}

	data, err := s.Encode(original)
	if err != nil {
		t.Fatalf("tag %d Encode failed: %v", s.Tag(), err)
	}

	var decoded message.Request
	if err := s.Decode(data, &decoded); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Interface != original.Interface || decoded.Method != original.Method {
		t.Errorf("envelope mismatch: got %+v, want %+v", decoded, original)
	}
	if decoded.CorrelationID != original.CorrelationID {
		t.Errorf("correlation id mismatch: got %s, want %s", decoded.CorrelationID, original.CorrelationID)
	}
	if len(decoded.Args) != 1 || string(decoded.Args[0]) != `"world"` {
		t.Errorf("args mismatch: got %v", decoded.Args)
	}
}

func TestJSONSerializer(t *testing.T) {
	roundTrip(t, &JSONSerializer{})
}

func TestNativeSerializer(t *testing.T) {
	roundTrip(t, &NativeSerializer{})
}

func TestGetUnknownTag(t *testing.T) {
	if _, err := Get(42); err == nil {
		t.Fatal("expected error for unregistered tag")
	}
}

func TestRegisterLastWins(t *testing.T) {
	// The marker field gives custom a non-zero size, so its pointer is
	// distinct from the built-in JSON serializer's.
	custom := &struct {
		JSONSerializer
		marker int
	}{marker: 1}
	Register(custom)
	got, err := Get(TagJSON)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Tag() != TagJSON {
		t.Fatalf("expected tag %d, got %d", TagJSON, got.Tag())
	}
	if got != Serializer(custom) {
		t.Fatalf("expected the last registered serializer for tag %d", TagJSON)
	}
}

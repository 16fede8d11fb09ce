package message

import (
	"encoding/json"
	"testing"
)

func TestRequestRoundTripsThroughJSON(t *testing.T) {
	req := &Request{
		Interface:     "demo.Hello",
		Method:        "Hello",
		Args:          []json.RawMessage{json.RawMessage(`"world"`)},
		ArgTypes:      []string{"string"},
		CorrelationID: "1-1234567890",
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Interface != req.Interface || decoded.Method != req.Method {
		t.Fatalf("mismatch: got %+v, want %+v", decoded, req)
	}
	if len(decoded.Args) != 1 || string(decoded.Args[0]) != `"world"` {
		t.Fatalf("args mismatch: got %v", decoded.Args)
	}
	if decoded.CorrelationID != req.CorrelationID {
		t.Fatalf("correlation id mismatch: got %s, want %s", decoded.CorrelationID, req.CorrelationID)
	}
}

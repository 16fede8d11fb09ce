package client

import (
	"encoding/json"
	"reflect"

	"github.com/WeiJinUp/jg-rpc/message"
)

func marshalArgs(args []any) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		raw[i] = data
	}
	return raw, nil
}

// TypeDescriptor builds the fully-qualified type name a stub wrapper sends
// as the argument type descriptor for v, matching the descriptor the server
// computes from its registered method's argument type (server/service.go).
// v is typically a pointer to the argument struct; TypeDescriptor dereferences
// it first.
func TypeDescriptor(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// UnmarshalResult decodes a successful Response's raw result into out.
func UnmarshalResult(resp *message.Response, out any) error {
	if len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/WeiJinUp/jg-rpc/client"
	"github.com/WeiJinUp/jg-rpc/codec"
	"github.com/WeiJinUp/jg-rpc/directory"
	"github.com/WeiJinUp/jg-rpc/loadbalance"
	"github.com/WeiJinUp/jg-rpc/message"
	"github.com/WeiJinUp/jg-rpc/server"
)

func setupServerAndClient(b *testing.B) (*server.Server, *client.Engine) {
	svr := server.New()
	if err := svr.Register("Arith", &Arith{}); err != nil {
		b.Fatal(err)
	}
	go svr.Serve("tcp", "127.0.0.1:0")
	port := boundPort(b, svr)

	dir := directory.NewMemoryDirectory()
	if err := dir.Register("Arith", directory.Endpoint{Host: "127.0.0.1", Port: port}); err != nil {
		b.Fatal(err)
	}

	engine := client.NewEngine(dir, loadbalance.NewRoundRobin())
	return svr, engine
}

// BenchmarkSerialCall: single goroutine, serial calls over one multiplexed
// connection — the baseline the teacher's own BenchmarkSerialCall measures.
func BenchmarkSerialCall(b *testing.B) {
	svr, engine := setupServerAndClient(b)
	b.Cleanup(func() { svr.Shutdown(3 * time.Second); engine.Close() })
	stub := client.NewStub(engine, "Arith")

	args := &Args{A: 1, B: 2}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var reply Reply
		if err := stub.Call(ctx, "Add", &reply, args); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkConcurrentCall: many goroutines sharing the same connection —
// the multiplexing payoff the teacher's own BenchmarkConcurrentCall is
// meant to demonstrate.
func BenchmarkConcurrentCall(b *testing.B) {
	svr, engine := setupServerAndClient(b)
	b.Cleanup(func() { svr.Shutdown(3 * time.Second); engine.Close() })
	stub := client.NewStub(engine, "Arith")

	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		args := &Args{A: 1, B: 2}
		for pb.Next() {
			var reply Reply
			if err := stub.Call(ctx, "Add", &reply, args); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkCodecJSON/BenchmarkCodecNative measure pure envelope encode/decode
// cost with no network involved, grounded on the teacher's own
// BenchmarkCodecJSON/BenchmarkCodecBinary pair.
func BenchmarkCodecJSON(b *testing.B) {
	benchmarkCodec(b, codec.TagJSON)
}

func BenchmarkCodecNative(b *testing.B) {
	benchmarkCodec(b, codec.TagNative)
}

func benchmarkCodec(b *testing.B, tag byte) {
	serializer, err := codec.Get(tag)
	if err != nil {
		b.Fatal(err)
	}
	req := &message.Request{
		Interface:     "Arith",
		Method:        "Add",
		Args:          []json.RawMessage{json.RawMessage(`{"A":1,"B":2}`)},
		CorrelationID: "1-1",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, err := serializer.Encode(req)
		if err != nil {
			b.Fatal(err)
		}
		var out message.Request
		if err := serializer.Decode(data, &out); err != nil {
			b.Fatal(err)
		}
	}
}

package proxy

import (
	"context"
	"errors"

	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/message"
	"github.com/BX-D/bridge/wireval"
)

// Future is the result of a Call, Construct, or Await that has been sent
// but not yet answered. Go has no thenable/await sugar to hook into, so
// this is the explicit stand-in: Result blocks (respecting ctx) until the
// matching response or error envelope arrives.
type Future struct {
	ch    chan *message.Envelope
	codec *wireval.Codec
	e     endpoint.Endpoint
}

// Result blocks until the response arrives, ctx is canceled, or the
// owning proxy is torn down with Node.Close; a broken endpoint on its
// own does not unblock it. A wrapped result decodes to a *Node bound to
// its own sub-channel; a plain result decodes to the inline value.
func (f *Future) Result(ctx context.Context) (any, error) {
	select {
	case resp := <-f.ch:
		if resp == nil {
			return nil, errors.New("proxy: connection closed")
		}
		if resp.Type == message.TypeError {
			return nil, errors.New(resp.Error)
		}
		if resp.Data == nil {
			return nil, nil
		}
		return f.codec.Decode(*resp.Data, f.e), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

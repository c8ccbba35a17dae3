// Package dispatch is the server side of the bridge: it subscribes on an
// endpoint, validates every inbound call/construct/await envelope,
// walks its key chain against an exposed Go value via reflection,
// invokes whatever it resolves to, and encodes the result back onto the
// wire — handing off to wireval.Codec whenever the result itself needs
// its own sub-channel.
package dispatch

import (
	"context"
	"fmt"

	"github.com/BX-D/bridge/endpoint"
	"github.com/BX-D/bridge/message"
	"github.com/BX-D/bridge/middleware"
	"github.com/BX-D/bridge/validate"
	"github.com/BX-D/bridge/wireval"
)

// Expose subscribes a handler on e that answers every inbound request
// addressed to root. mws run around the business handler in the same
// onion order middleware.Chain composes elsewhere in this module. The
// returned func unsubscribes the handler from e.
func Expose(root any, e endpoint.Endpoint, codec *wireval.Codec, mws ...middleware.Middleware) func() {
	handler := middleware.Chain(mws...)(businessHandler(root, codec, e))
	return e.On(func(m *message.Envelope) {
		if m.Classify() != message.KindRequest {
			return
		}
		if resp := handler(context.Background(), m); resp != nil {
			e.Send(resp)
		}
	})
}

// businessHandler is the core handler wrapped by middleware — it is the
// dispatcher's analogue of a server's reflect-based service call, except
// the "service" here is whatever value the session exposed, resolved by
// key chain instead of a fixed "Service.Method" string.
func businessHandler(root any, codec *wireval.Codec, e endpoint.Endpoint) middleware.HandlerFunc {
	return func(ctx context.Context, req *message.Envelope) (resp *message.Envelope) {
		// A panic anywhere in the walk, invocation or encoding becomes an
		// error reply instead of escaping into the endpoint's handler.
		defer func() {
			if r := recover(); r != nil {
				resp = faultResponse(req.ID, fmt.Errorf("panic handling %s request: %v", req.Type, r))
			}
		}()
		if err := validate.Request(req); err != nil {
			return faultResponse(req.ID, newFault(ProtocolError, "%s", err))
		}

		switch req.Type {
		case message.TypeAwait:
			val, err := resolve(root, req.KeyChain)
			if err != nil {
				return faultResponse(req.ID, err)
			}
			return message.NewResponse(req.ID, codec.Encode(val, e, false))

		case message.TypeCall:
			args := codec.DecodeArgs(req.Args, e)
			result, err := invokeChain(root, req.KeyChain, args)
			if err != nil {
				return faultResponse(req.ID, err)
			}
			return message.NewResponse(req.ID, codec.Encode(result, e, false))

		case message.TypeConstruct:
			args := codec.DecodeArgs(req.Args, e)
			result, err := invokeChain(root, req.KeyChain, args)
			if err != nil {
				return faultResponse(req.ID, err)
			}
			// Every construct response is wrapped, even plain data.
			return message.NewResponse(req.ID, codec.Encode(result, e, true))

		default:
			return faultResponse(req.ID, newFault(ProtocolError, "unsupported request type %q", req.Type))
		}
	}
}

// faultResponse puts err's message on the wire. A *Fault's Kind stays a
// Go-side-only richness — the wire error field carries exactly the
// underlying message a reference peer would produce (e.g. a thrown
// user error's message, unprefixed), never the kind name.
func faultResponse(id message.ID, err error) *message.Envelope {
	if f, ok := err.(*Fault); ok {
		return message.NewError(id, f.Err.Error())
	}
	return message.NewError(id, err.Error())
}

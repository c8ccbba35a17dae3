// Package channel implements the sub-channel multiplexer: it turns one
// physical endpoint.Endpoint and a tag into a derived endpoint that
// only sees — and only emits — traffic wrapped for that tag.
package channel

import "github.com/BX-D/bridge/endpoint"
import "github.com/BX-D/bridge/message"

// New wraps base so that sending on the result posts
// {channel: tag, payload: v} on base, and incoming messages are
// surfaced only when their top-level channel field equals tag — in
// which case the surfaced value is the nested payload envelope, not the
// wrapper itself — isolating a sub-channel from its siblings and from
// the bare stream. Multiple New calls with the same (base, tag) each
// produce an independent derived endpoint; all of them observe matching
// traffic (broadcast fan-out within a realm).
func New(base endpoint.Endpoint, tag string) endpoint.Endpoint {
	return &subChannel{base: base, tag: tag}
}

type subChannel struct {
	base endpoint.Endpoint
	tag  string
}

func (s *subChannel) Send(m *message.Envelope) error {
	return s.base.Send(message.NewChannelEnvelope(s.tag, m))
}

func (s *subChannel) On(h endpoint.Handler) func() {
	return s.base.On(func(m *message.Envelope) {
		if m == nil || m.Channel == nil || *m.Channel != s.tag {
			// Either bare-stream traffic (no channel field at all) or a
			// sibling sub-channel's traffic — both invisible here.
			return
		}
		if m.Payload == nil {
			return
		}
		h(m.Payload)
	})
}

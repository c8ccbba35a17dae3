// Package validate applies the inbound-message safety rules before the
// dispatcher ever walks a key chain.
package validate

import (
	"fmt"
	"strings"

	"github.com/BX-D/bridge/message"
)

// reservedSubstrings is the conservative, substring-based safety rule:
// a key chain segment containing any of these strings, compared without
// regard to case — not merely equal to one of them — is rejected
// outright. This is deliberately stricter than exact-match (it also
// rejects a legitimate name like "myConstructor") in exchange for being
// easy to audit.
var reservedSubstrings = []string{
	message.ReservedProto,
	message.ReservedPrototype,
	message.ReservedConstructor,
}

// Request checks a call/construct/await envelope's shape and key-chain
// safety. It never walks the chain against a live object — that is the
// dispatcher's job once Request has passed.
func Request(e *message.Envelope) error {
	if e == nil {
		return fmt.Errorf("validate: nil envelope")
	}
	if e.ID == "" {
		return fmt.Errorf("validate: missing id")
	}
	switch e.Type {
	case message.TypeCall, message.TypeConstruct, message.TypeAwait:
	default:
		return fmt.Errorf("validate: unrecognized request type %q", e.Type)
	}

	for _, key := range e.KeyChain {
		if err := Key(key); err != nil {
			return err
		}
	}

	if e.Type == message.TypeCall || e.Type == message.TypeConstruct {
		if e.Args == nil {
			return fmt.Errorf("validate: %s request missing args array", e.Type)
		}
	}

	return nil
}

// Key reports whether a single key-chain segment is safe to resolve.
func Key(key string) error {
	for _, reserved := range reservedSubstrings {
		if strings.Contains(strings.ToLower(key), reserved) {
			return fmt.Errorf("validate: unsafe property names in key chain: %q contains %q", key, reserved)
		}
	}
	return nil
}

// Response checks a response/error envelope's shape, as applied on the
// client side before it is matched against the pending-request table.
func Response(e *message.Envelope) error {
	if e == nil {
		return fmt.Errorf("validate: nil envelope")
	}
	if e.ID == "" {
		return fmt.Errorf("validate: missing id")
	}
	switch e.Type {
	case message.TypeResponse:
		if e.Data == nil {
			return fmt.Errorf("validate: response missing data")
		}
	case message.TypeError:
		if e.Error == "" {
			return fmt.Errorf("validate: error envelope missing error message")
		}
	default:
		return fmt.Errorf("validate: unrecognized response type %q", e.Type)
	}
	return nil
}

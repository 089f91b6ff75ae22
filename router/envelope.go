package router

import (
	"encoding/json"
)

// Env identifies the calling context of one dispatched message.
type Env struct {
	// Origin is the authenticated origin of the caller, e.g. "https://app.example"
	// or the internal origin of the wallet's own UI.
	Origin string

	// IsInternal is set for the wallet's own UI contexts.
	IsInternal bool

	// RequestID correlates log lines of one call.
	RequestID string
}

// Envelope is one cross-context call as it arrives on the wire.
type Envelope struct {
	Route   string          `json:"route"`
	Kind    string          `json:"type"`
	Payload json.RawMessage `json:"msg,omitempty"`
}

// Message is a decoded payload of a declared kind.
type Message interface {
	// ValidateBasic performs stateless checks of the decoded payload.
	ValidateBasic() error
}

// Kind declares one message shape accepted by a route.
type Kind struct {
	Name string
	New  func() Message
}

// NewKind declares a kind whose payload decodes into a fresh *T.
func NewKind[T any, PT interface {
	*T
	Message
}](name string) Kind {
	return Kind{
		Name: name,
		New: func() Message {
			return PT(new(T))
		},
	}
}

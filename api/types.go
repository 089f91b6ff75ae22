package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ruteri/wallet-background/cryptoutils"
	"github.com/ruteri/wallet-background/interaction"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/keyring"
	"github.com/ruteri/wallet-background/permission"
	"github.com/ruteri/wallet-background/router"
	"github.com/ruteri/wallet-background/secretwasm"
)

// Header constants used in HTTP requests.
const (
	// OriginHeader identifies the calling context. Required on every dispatch.
	OriginHeader = "X-Wallet-Origin"

	// InternalTokenHeader authenticates callers claiming the internal origin.
	InternalTokenHeader = "X-Wallet-Internal-Token"

	// RequestIDHeader is propagated into the dispatch environment.
	RequestIDHeader = "X-Request-Id"
)

// DefaultInternalOrigin is the origin of the wallet's own UI.
const DefaultInternalOrigin = "wallet://internal"

var (
	// ErrMissingOrigin is returned when a dispatch carries no origin header.
	ErrMissingOrigin = errors.New("missing origin")

	// ErrUnauthorized is returned when the internal origin is claimed without a valid token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRequest is returned for bodies that are not a dispatch request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternal stands for failures that carry no stable code.
	ErrInternal = errors.New("internal error")
)

// DispatchRequest is the body of POST /api/dispatch.
type DispatchRequest = router.Envelope

// DispatchResponse carries either the handler result or an error.
type DispatchResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// RoutesResponse lists the registered routes and their message kinds.
type RoutesResponse struct {
	Routes map[string][]string `json:"routes"`
}

// Error is the wire form of a failed dispatch. It unwraps to the sentinel
// its code stands for, so errors.Is works across the HTTP bridge.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return ErrorForCode(e.Code)
}

type errorCode struct {
	code   string
	err    error
	status int
}

// errorCodes is matched in order, the first sentinel err wraps wins.
var errorCodes = []errorCode{
	{"missing_origin", ErrMissingOrigin, http.StatusUnauthorized},
	{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
	{"invalid_request", ErrInvalidRequest, http.StatusBadRequest},

	{"unknown_route", router.ErrUnknownRoute, http.StatusNotFound},
	{"unsupported_message_kind", router.ErrUnsupportedMessageKind, http.StatusNotFound},
	{"unbound_route", router.ErrUnboundRoute, http.StatusServiceUnavailable},
	{"invalid_message", router.ErrInvalidMessage, http.StatusBadRequest},

	{"permission_denied", permission.ErrPermissionDenied, http.StatusForbidden},

	{"unknown_chain", interfaces.ErrUnknownChain, http.StatusNotFound},
	{"invalid_chain_descriptor", interfaces.ErrInvalidChainDescriptor, http.StatusBadRequest},
	{"keyring_not_initialized", interfaces.ErrKeyRingNotInitialized, http.StatusConflict},
	{"keyring_locked", interfaces.ErrKeyRingLocked, http.StatusConflict},
	{"signing_rejected", interfaces.ErrSigningRejected, http.StatusConflict},
	{"signing_timed_out", interfaces.ErrSigningTimedOut, http.StatusGatewayTimeout},
	{"decryption_failed", interfaces.ErrDecryptionFailed, http.StatusUnprocessableEntity},
	{"not_found", interfaces.ErrNotFound, http.StatusNotFound},
	{"backend_unavailable", interfaces.ErrBackendUnavailable, http.StatusServiceUnavailable},

	{"keyring_exists", keyring.ErrKeyRingExists, http.StatusConflict},
	{"invalid_mnemonic", keyring.ErrInvalidMnemonic, http.StatusBadRequest},
	{"invalid_shares", keyring.ErrInvalidShares, http.StatusBadRequest},
	{"invalid_share_config", keyring.ErrInvalidShareConfig, http.StatusBadRequest},
	{"wrong_password", cryptoutils.ErrWrongPassword, http.StatusUnauthorized},
	{"unknown_interaction", interaction.ErrUnknownInteraction, http.StatusNotFound},
	{"consensus_key_unavailable", secretwasm.ErrConsensusKeyUnavailable, http.StatusBadGateway},
	{"corrupt_seed", secretwasm.ErrCorruptSeed, http.StatusInternalServerError},

	{"internal", ErrInternal, http.StatusInternalServerError},
}

// ErrorFrom converts err into its wire form. Unknown errors get the internal code.
func ErrorFrom(err error) *Error {
	res := &Error{Code: "internal", Message: err.Error()}

	var handlerErr *router.HandlerError
	if errors.As(err, &handlerErr) {
		res.Kind = handlerErr.Kind
	}

	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			res.Code = c.code
			break
		}
	}
	return res
}

// ErrorForCode returns the sentinel a code stands for.
func ErrorForCode(code string) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return ErrInternal
}

// StatusForCode returns the HTTP status a code is served with.
func StatusForCode(code string) int {
	for _, c := range errorCodes {
		if c.code == code {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/wallet-background/api"
	"github.com/ruteri/wallet-background/router"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler bridges HTTP requests onto the message router. It authenticates
// the caller's origin; authorization is left to the route handlers.
type Handler struct {
	router         *router.Router
	internalOrigin string
	internalToken  string
	log            *slog.Logger
}

// NewHandler creates a bridge for r. Requests claiming internalOrigin must
// carry internalToken; an empty token rejects them all.
func NewHandler(r *router.Router, internalOrigin, internalToken string, log *slog.Logger) *Handler {
	return &Handler{
		router:         r,
		internalOrigin: internalOrigin,
		internalToken:  internalToken,
		log:            log,
	}
}

// HandleDispatch decodes one envelope and dispatches it.
//
// URL format: POST /api/dispatch
// Required headers:
//   - X-Wallet-Origin: caller identity
//   - X-Wallet-Internal-Token: only for the internal origin
func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	env, err := h.authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var envelope api.DispatchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&envelope); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", api.ErrInvalidRequest, err))
		return
	}

	result, err := h.router.Dispatch(r.Context(), env, envelope)
	if err != nil {
		h.writeError(w, err)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		h.log.Error("Failed to encode dispatch result",
			slog.String("route", envelope.Route),
			slog.String("kind", envelope.Kind),
			"err", err)
		h.writeError(w, fmt.Errorf("%w: could not encode result", api.ErrInternal))
		return
	}

	writeJSON(w, http.StatusOK, api.DispatchResponse{Result: raw})
}

// HandleRoutes lists the registered routes.
//
// URL format: GET /api/routes
func (h *Handler) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.RoutesResponse{Routes: h.router.Routes()})
}

func (h *Handler) authenticate(r *http.Request) (router.Env, error) {
	origin := r.Header.Get(api.OriginHeader)
	if origin == "" {
		return router.Env{}, api.ErrMissingOrigin
	}

	isInternal := origin == h.internalOrigin
	if isInternal {
		token := r.Header.Get(api.InternalTokenHeader)
		if h.internalToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.internalToken)) != 1 {
			h.log.Warn("Rejected internal origin without valid token", slog.String("remote", r.RemoteAddr))
			return router.Env{}, api.ErrUnauthorized
		}
	}

	requestID := r.Header.Get(api.RequestIDHeader)
	if requestID == "" {
		requestID = middleware.GetReqID(r.Context())
	}

	return router.Env{Origin: origin, IsInternal: isInternal, RequestID: requestID}, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := api.ErrorFrom(err)
	if apiErr.Code == "internal" {
		// details stay in the log
		h.log.Error("Dispatch failed", "err", err)
		apiErr.Message = api.ErrInternal.Error()
	}

	writeJSON(w, api.StatusForCode(apiErr.Code), api.DispatchResponse{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

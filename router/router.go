package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/wallet-background/metrics"
)

// HandlerFunc serves every kind of one route. msg is the decoded, validated
// payload; its concrete type is the one declared by the envelope's kind.
type HandlerFunc func(ctx context.Context, env Env, msg Message) (any, error)

type route struct {
	name    string
	kinds   map[string]Kind
	handler HandlerFunc
}

// Router resolves envelopes to the handler bound to their route. It owns the
// route table and holds no business state.
type Router struct {
	mu      sync.RWMutex
	routes  map[string]*route
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates an empty router. m may be nil.
func New(log *slog.Logger, m *metrics.Metrics) *Router {
	return &Router{
		routes:  make(map[string]*route),
		log:     log,
		metrics: m,
	}
}

// RegisterRoute declares a route and the fixed set of kinds it accepts.
func (r *Router) RegisterRoute(name string, kinds ...Kind) error {
	accepted := make(map[string]Kind, len(kinds))
	for _, k := range kinds {
		if _, ok := accepted[k.Name]; ok {
			return fmt.Errorf("%w: %s on route %s", ErrDuplicateKind, k.Name, name)
		}
		if k.New == nil {
			return fmt.Errorf("kind %s on route %s has no constructor", k.Name, name)
		}
		accepted[k.Name] = k
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, name)
	}

	r.routes[name] = &route{name: name, kinds: accepted}
	return nil
}

// BindHandler attaches the single handler of a registered route.
func (r *Router) BindHandler(name string, handler HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.routes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnboundRoute, name)
	}
	if rt.handler != nil {
		return fmt.Errorf("%w: %s", ErrHandlerAlreadyBound, name)
	}

	rt.handler = handler
	return nil
}

// Routes returns the registered route names and their sorted kinds.
func (r *Router) Routes() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[string][]string, len(r.routes))
	for name, rt := range r.routes {
		kinds := make([]string, 0, len(rt.kinds))
		for k := range rt.kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		res[name] = kinds
	}
	return res
}

// resolve looks up the kind and handler under the read lock. The lock is
// released before the handler runs.
func (r *Router) resolve(e Envelope) (Kind, HandlerFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[e.Route]
	if !ok {
		return Kind{}, nil, fmt.Errorf("%w: %s", ErrUnknownRoute, e.Route)
	}

	kind, ok := rt.kinds[e.Kind]
	if !ok {
		return Kind{}, nil, fmt.Errorf("%w: %s on route %s", ErrUnsupportedMessageKind, e.Kind, e.Route)
	}

	if rt.handler == nil {
		return Kind{}, nil, fmt.Errorf("%w: %s", ErrUnboundRoute, e.Route)
	}

	return kind, rt.handler, nil
}

// Dispatch routes one envelope. Routing and decoding failures are returned
// as router errors; handler failures come back as *HandlerError.
func (r *Router) Dispatch(ctx context.Context, env Env, e Envelope) (any, error) {
	start := time.Now()

	kind, handler, err := r.resolve(e)
	if err != nil {
		r.log.Debug("Rejected message",
			slog.String("route", e.Route),
			slog.String("kind", e.Kind),
			slog.String("origin", env.Origin),
			"err", err)
		r.metrics.ObserveDispatch(e.Route, e.Kind, "routing_error", time.Since(start))
		return nil, err
	}

	msg, err := decode(kind, e.Payload)
	if err != nil {
		r.metrics.ObserveDispatch(e.Route, e.Kind, "invalid", time.Since(start))
		return nil, err
	}

	result, err := handler(ctx, env, msg)
	if err != nil {
		r.log.Debug("Handler failed",
			slog.String("route", e.Route),
			slog.String("kind", e.Kind),
			slog.String("origin", env.Origin),
			slog.String("requestID", env.RequestID),
			"err", err)
		r.metrics.ObserveDispatch(e.Route, e.Kind, "error", time.Since(start))
		return nil, &HandlerError{Route: e.Route, Kind: e.Kind, Err: err}
	}

	r.metrics.ObserveDispatch(e.Route, e.Kind, "ok", time.Since(start))
	return result, nil
}

func decode(kind Kind, payload json.RawMessage) (Message, error) {
	msg := kind.New()

	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMessage, kind.Name, err)
	}

	if err := msg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMessage, kind.Name, err)
	}

	return msg, nil
}

package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoMsg struct {
	Text string `json:"text"`
}

func (m *echoMsg) ValidateBasic() error {
	if m.Text == "" {
		return errors.New("text is empty")
	}
	return nil
}

type pingMsg struct{}

func (m *pingMsg) ValidateBasic() error { return nil }

var (
	echoKind = NewKind[echoMsg]("Echo")
	pingKind = NewKind[pingMsg]("Ping")
)

func newTestRouter() *Router {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestRegisterRoute(t *testing.T) {
	r := newTestRouter()

	require.NoError(t, r.RegisterRoute("test", echoKind, pingKind))

	err := r.RegisterRoute("test", pingKind)
	assert.ErrorIs(t, err, ErrDuplicateRoute)

	err = r.RegisterRoute("other", pingKind, pingKind)
	assert.ErrorIs(t, err, ErrDuplicateKind)

	assert.Equal(t, map[string][]string{"test": {"Echo", "Ping"}}, r.Routes())
}

func TestBindHandler(t *testing.T) {
	r := newTestRouter()
	handler := func(ctx context.Context, env Env, msg Message) (any, error) { return nil, nil }

	err := r.BindHandler("missing", handler)
	assert.ErrorIs(t, err, ErrUnboundRoute)

	require.NoError(t, r.RegisterRoute("test", pingKind))
	require.NoError(t, r.BindHandler("test", handler))

	err = r.BindHandler("test", handler)
	assert.ErrorIs(t, err, ErrHandlerAlreadyBound)
}

func TestDispatch(t *testing.T) {
	r := newTestRouter()
	require.NoError(t, r.RegisterRoute("test", echoKind, pingKind))

	var calls atomic.Int32
	require.NoError(t, r.BindHandler("test", func(ctx context.Context, env Env, msg Message) (any, error) {
		calls.Add(1)
		switch msg := msg.(type) {
		case *echoMsg:
			return env.Origin + ":" + msg.Text, nil
		case *pingMsg:
			return "pong", nil
		default:
			return nil, errors.New("unexpected message")
		}
	}))

	env := Env{Origin: "https://app.example"}

	t.Run("routes by kind", func(t *testing.T) {
		res, err := r.Dispatch(context.Background(), env, Envelope{Route: "test", Kind: "Echo", Payload: json.RawMessage(`{"text":"hi"}`)})
		require.NoError(t, err)
		assert.Equal(t, "https://app.example:hi", res)

		res, err = r.Dispatch(context.Background(), env, Envelope{Route: "test", Kind: "Ping"})
		require.NoError(t, err)
		assert.Equal(t, "pong", res)
	})

	calls.Store(0)

	t.Run("unknown route never reaches a handler", func(t *testing.T) {
		_, err := r.Dispatch(context.Background(), env, Envelope{Route: "nope", Kind: "Ping"})
		assert.ErrorIs(t, err, ErrUnknownRoute)
		assert.Zero(t, calls.Load())
	})

	t.Run("undeclared kind never reaches a handler", func(t *testing.T) {
		_, err := r.Dispatch(context.Background(), env, Envelope{Route: "test", Kind: "Sign"})
		assert.ErrorIs(t, err, ErrUnsupportedMessageKind)
		assert.Zero(t, calls.Load())
	})

	t.Run("payload must match the declared shape", func(t *testing.T) {
		_, err := r.Dispatch(context.Background(), env, Envelope{Route: "test", Kind: "Echo", Payload: json.RawMessage(`{"text":"hi","extra":1}`)})
		assert.ErrorIs(t, err, ErrInvalidMessage)

		_, err = r.Dispatch(context.Background(), env, Envelope{Route: "test", Kind: "Echo", Payload: json.RawMessage(`{"text":""}`)})
		assert.ErrorIs(t, err, ErrInvalidMessage)
		assert.ErrorContains(t, err, "text is empty")

		assert.Zero(t, calls.Load())
	})
}

func TestDispatchUnboundRoute(t *testing.T) {
	r := newTestRouter()
	require.NoError(t, r.RegisterRoute("test", pingKind))

	_, err := r.Dispatch(context.Background(), Env{}, Envelope{Route: "test", Kind: "Ping"})
	assert.ErrorIs(t, err, ErrUnboundRoute)
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	sentinel := errors.New("key ring is locked")

	r := newTestRouter()
	require.NoError(t, r.RegisterRoute("test", pingKind))
	require.NoError(t, r.BindHandler("test", func(ctx context.Context, env Env, msg Message) (any, error) {
		return nil, sentinel
	}))

	_, err := r.Dispatch(context.Background(), Env{}, Envelope{Route: "test", Kind: "Ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, sentinel.Error(), err.Error())

	var handlerErr *HandlerError
	require.ErrorAs(t, err, &handlerErr)
	assert.Equal(t, "Ping", handlerErr.Kind)
	assert.Equal(t, "test", handlerErr.Route)
}

func TestDispatchDoesNotBlockOtherRoutes(t *testing.T) {
	r := newTestRouter()
	require.NoError(t, r.RegisterRoute("slow", pingKind))
	require.NoError(t, r.RegisterRoute("fast", pingKind))

	release := make(chan struct{})
	entered := make(chan struct{})
	require.NoError(t, r.BindHandler("slow", func(ctx context.Context, env Env, msg Message) (any, error) {
		close(entered)
		<-release
		return "slow", nil
	}))
	require.NoError(t, r.BindHandler("fast", func(ctx context.Context, env Env, msg Message) (any, error) {
		return "fast", nil
	}))

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_, _ = r.Dispatch(context.Background(), Env{}, Envelope{Route: "slow", Kind: "Ping"})
	}()
	<-entered

	done := make(chan any, 1)
	go func() {
		res, _ := r.Dispatch(context.Background(), Env{}, Envelope{Route: "fast", Kind: "Ping"})
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, "fast", res)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch on an independent route was blocked")
	}

	close(release)
	<-slowDone
}

package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/wallet-background/interfaces"
	"github.com/ruteri/wallet-background/metrics"
)

// DefaultTimeout bounds how long a request waits for the user.
const DefaultTimeout = 5 * time.Minute

const (
	TypeSign         = "sign"
	TypeSuggestChain = "suggest-chain"
	TypeExportBackup = "export-backup"
)

// ErrUnknownInteraction is returned when approving or rejecting an id that is not pending.
var ErrUnknownInteraction = errors.New("unknown interaction")

// Request is one action awaiting a user decision.
type Request struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Origin    string          `json:"origin"`
	ChainID   string          `json:"chainId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Approver asks the user to approve a request. It blocks until the user
// decides or the context ends; rejection and cancellation yield
// interfaces.ErrSigningRejected and expiry interfaces.ErrSigningTimedOut.
type Approver interface {
	RequestApproval(ctx context.Context, req Request) error
}

type pending struct {
	req  Request
	done chan error
}

// Service queues requests until the user approves or rejects them.
type Service struct {
	mu      sync.Mutex
	pending map[string]*pending
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates an interaction queue. A zero timeout uses DefaultTimeout; m may be nil.
func NewService(timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		pending: make(map[string]*pending),
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// RequestApproval enqueues req and waits for the decision.
func (s *Service) RequestApproval(ctx context.Context, req Request) error {
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now()

	p := &pending{req: req, done: make(chan error, 1)}

	s.mu.Lock()
	s.pending[req.ID] = p
	s.mu.Unlock()

	s.log.Info("Waiting for user approval",
		slog.String("id", req.ID),
		slog.String("type", req.Type),
		slog.String("origin", req.Origin),
		slog.String("chainId", req.ChainID))

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-p.done:
	case <-ctx.Done():
		err = s.abandon(p, ContextError(ctx.Err()))
	case <-timer.C:
		err = s.abandon(p, interfaces.ErrSigningTimedOut)
	}

	s.metrics.Interaction(req.Type, outcome(err))
	return err
}

// abandon withdraws p after the waiter gave up. A decision that claimed p
// first still stands.
func (s *Service) abandon(p *pending, reason error) error {
	s.mu.Lock()
	_, ok := s.pending[p.req.ID]
	delete(s.pending, p.req.ID)
	s.mu.Unlock()

	if !ok {
		return <-p.done
	}
	return reason
}

// Approve resolves a pending request successfully.
func (s *Service) Approve(id string) error {
	return s.resolve(id, nil)
}

// Reject resolves a pending request with ErrSigningRejected.
func (s *Service) Reject(id string) error {
	return s.resolve(id, interfaces.ErrSigningRejected)
}

func (s *Service) resolve(id string, result error) error {
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInteraction, id)
	}

	p.done <- result
	return nil
}

// Pending returns the requests awaiting a decision, oldest first.
func (s *Service) Pending() []Request {
	s.mu.Lock()
	res := make([]Request, 0, len(s.pending))
	for _, p := range s.pending {
		res = append(res, p.req)
	}
	s.mu.Unlock()

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// AutoApprover approves every request immediately. Development only.
type AutoApprover struct {
	Log *slog.Logger
}

func (a AutoApprover) RequestApproval(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return ContextError(err)
	}
	if a.Log != nil {
		a.Log.Warn("Auto-approving request",
			slog.String("type", req.Type),
			slog.String("origin", req.Origin),
			slog.String("chainId", req.ChainID))
	}
	return nil
}

// ContextError maps a context error onto the signing errors: a deadline
// becomes ErrSigningTimedOut, anything else ErrSigningRejected.
func ContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", interfaces.ErrSigningTimedOut, err)
	}
	return fmt.Errorf("%w: %v", interfaces.ErrSigningRejected, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "approved"
	case errors.Is(err, interfaces.ErrSigningTimedOut):
		return "timed_out"
	default:
		return "rejected"
	}
}

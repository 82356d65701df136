// Package breaker wraps a NodeStore with a circuit breaker and per-call
// store metrics.
package breaker

import (
	"context"
	"errors"
	"time"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var _ ports.NodeStore = (*NodeRepository)(nil)

// Metrics receives store call outcomes and breaker state changes
type Metrics interface {
	RecordStoreOperation(operation, status string, duration time.Duration)
	SetBreakerState(name string, state float64)
}

// Config holds configuration for the circuit breaker
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureRatio trips the breaker once MinRequests have been observed
	FailureRatio float64
	MinRequests  uint32
}

// DefaultConfig returns a default configuration for the circuit breaker
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// NodeRepository decorates a NodeStore. NOT_FOUND and VALIDATION results are
// answers, not failures, and never trip the breaker. Calls are not retried.
type NodeRepository struct {
	next    ports.NodeStore
	cb      *gobreaker.CircuitBreaker
	metrics Metrics
	logger  *zap.Logger
}

// NewNodeRepository wraps next. metrics may be nil.
func NewNodeRepository(next ports.NodeStore, cfg Config, metrics Metrics, logger *zap.Logger) *NodeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &NodeRepository{
		next:    next,
		metrics: metrics,
		logger:  logger,
	}

	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.SetBreakerState(name, stateValue(to))
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || pkgerrors.IsNotFound(err) || pkgerrors.IsValidation(err) ||
				errors.Is(err, context.Canceled)
		},
	})

	if metrics != nil {
		metrics.SetBreakerState(cfg.Name, stateValue(gobreaker.StateClosed))
	}
	return r
}

// State returns the current breaker state
func (r *NodeRepository) State() gobreaker.State {
	return r.cb.State()
}

func (r *NodeRepository) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := r.cb.Execute(fn)

	status := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "rejected"
		err = pkgerrors.NewStoreError(operation, err).WithCode("CIRCUIT_OPEN")
	case err != nil:
		status = "error"
	}

	if r.metrics != nil {
		r.metrics.RecordStoreOperation(operation, status, time.Since(start))
	}
	return result, err
}

func (r *NodeRepository) Create(ctx context.Context, fields valueobjects.NodeFields, children []valueobjects.NodeID) (*entities.Node, error) {
	result, err := r.execute("create", func() (interface{}, error) {
		return r.next.Create(ctx, fields, children)
	})
	if err != nil {
		return nil, err
	}
	return result.(*entities.Node), nil
}

func (r *NodeRepository) Update(ctx context.Context, node *entities.Node) error {
	_, err := r.execute("update", func() (interface{}, error) {
		return nil, r.next.Update(ctx, node)
	})
	return err
}

func (r *NodeRepository) FindByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	result, err := r.execute("find_by_id", func() (interface{}, error) {
		return r.next.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*entities.Node), nil
}

func (r *NodeRepository) FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error) {
	return r.list("find_by_ids", func() ([]*entities.Node, error) {
		return r.next.FindByIDs(ctx, ids)
	})
}

func (r *NodeRepository) FindByName(ctx context.Context, name string) ([]*entities.Node, error) {
	return r.list("find_by_name", func() ([]*entities.Node, error) {
		return r.next.FindByName(ctx, name)
	})
}

func (r *NodeRepository) FindByType(ctx context.Context, nodeType string) ([]*entities.Node, error) {
	return r.list("find_by_type", func() ([]*entities.Node, error) {
		return r.next.FindByType(ctx, nodeType)
	})
}

func (r *NodeRepository) List(ctx context.Context) ([]*entities.Node, error) {
	return r.list("list", func() ([]*entities.Node, error) {
		return r.next.List(ctx)
	})
}

func (r *NodeRepository) DeleteByID(ctx context.Context, id valueobjects.NodeID) error {
	_, err := r.execute("delete", func() (interface{}, error) {
		return nil, r.next.DeleteByID(ctx, id)
	})
	return err
}

func (r *NodeRepository) AppendChildren(ctx context.Context, parentID valueobjects.NodeID, childIDs []valueobjects.NodeID) error {
	_, err := r.execute("append_children", func() (interface{}, error) {
		return nil, r.next.AppendChildren(ctx, parentID, childIDs)
	})
	return err
}

func (r *NodeRepository) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.execute("delete_all", func() (interface{}, error) {
		return r.next.DeleteAll(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// Ping bypasses the breaker so readiness reflects the store itself
func (r *NodeRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *NodeRepository) list(operation string, fn func() ([]*entities.Node, error)) ([]*entities.Node, error) {
	result, err := r.execute(operation, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*entities.Node), nil
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

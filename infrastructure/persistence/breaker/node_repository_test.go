package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	"nodegraph/infrastructure/persistence/memory"
	pkgerrors "nodegraph/pkg/errors"
	"nodegraph/tests/fixtures"
	"nodegraph/tests/mocks"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMetrics struct {
	mu       sync.Mutex
	statuses map[string]int
	states   []float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{statuses: make(map[string]int)}
}

func (m *fakeMetrics) RecordStoreOperation(operation, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[operation+"/"+status]++
}

func (m *fakeMetrics) SetBreakerState(name string, state float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
}

func testConfig() Config {
	cfg := DefaultConfig("test-store")
	cfg.MinRequests = 3
	cfg.FailureRatio = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestNodeRepository_PassesThrough(t *testing.T) {
	ctx := context.Background()
	metrics := newFakeMetrics()
	repo := NewNodeRepository(memory.NewNodeRepository(), testConfig(), metrics, zap.NewNop())

	node, err := repo.Create(ctx, fixtures.MustFields("A", "t", "d"), nil)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, node.ID())
	require.NoError(t, err)
	assert.Equal(t, "A", found.Name())

	byName, err := repo.FindByName(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	removed, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.Equal(t, 1, metrics.statuses["create/success"])
	assert.Equal(t, 1, metrics.statuses["find_by_id/success"])
	assert.Equal(t, []float64{0}, metrics.states)
}

func TestNodeRepository_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewNodeRepository(memory.NewNodeRepository(), testConfig(), nil, zap.NewNop())

	for i := 0; i < 10; i++ {
		_, err := repo.FindByID(ctx, valueobjects.NewNodeID())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	}
	assert.Equal(t, gobreaker.StateClosed, repo.State())
}

func TestNodeRepository_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockNodeStore)
	metrics := newFakeMetrics()
	repo := NewNodeRepository(store, testConfig(), metrics, zap.NewNop())

	failure := pkgerrors.NewStoreError("scan", errors.New("connection refused"))
	store.On("List", ctx).Return(nil, failure).Times(3)

	for i := 0; i < 3; i++ {
		_, err := repo.List(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	}
	assert.Equal(t, gobreaker.StateOpen, repo.State())

	_, err := repo.List(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsStore(err))
	assert.Equal(t, "CIRCUIT_OPEN", pkgerrors.GetAppError(err).Code)

	store.AssertNumberOfCalls(t, "List", 3)
	assert.Equal(t, 3, metrics.statuses["list/error"])
	assert.Equal(t, 1, metrics.statuses["list/rejected"])
	assert.Equal(t, []float64{0, 2}, metrics.states)
}

func TestNodeRepository_PingBypassesBreaker(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockNodeStore)
	repo := NewNodeRepository(store, testConfig(), nil, zap.NewNop())

	store.On("DeleteByID", ctx, mock.Anything).Return(errors.New("down"))
	for i := 0; i < 3; i++ {
		require.Error(t, repo.DeleteByID(ctx, valueobjects.NewNodeID()))
	}
	require.Equal(t, gobreaker.StateOpen, repo.State())

	store.On("Ping", ctx).Return(nil)
	assert.NoError(t, repo.Ping(ctx))
}

func TestNodeRepository_ReturnsNodes(t *testing.T) {
	ctx := context.Background()
	store := new(mocks.MockNodeStore)
	repo := NewNodeRepository(store, testConfig(), nil, zap.NewNop())

	node := fixtures.NewNodeBuilder().MustBuild()
	store.On("FindByIDs", ctx, []valueobjects.NodeID{node.ID()}).Return([]*entities.Node{node}, nil)

	found, err := repo.FindByIDs(ctx, []valueobjects.NodeID{node.ID()})
	require.NoError(t, err)
	assert.Equal(t, []*entities.Node{node}, found)
}

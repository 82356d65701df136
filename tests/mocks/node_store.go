// Package mocks provides testify mocks for application ports.
package mocks

import (
	"context"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"

	"github.com/stretchr/testify/mock"
)

var _ ports.NodeStore = (*MockNodeStore)(nil)

// MockNodeStore is a testify mock of ports.NodeStore
type MockNodeStore struct {
	mock.Mock
}

func (m *MockNodeStore) Create(ctx context.Context, fields valueobjects.NodeFields, children []valueobjects.NodeID) (*entities.Node, error) {
	args := m.Called(ctx, fields, children)
	if node, ok := args.Get(0).(*entities.Node); ok {
		return node, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNodeStore) Update(ctx context.Context, node *entities.Node) error {
	args := m.Called(ctx, node)
	return args.Error(0)
}

func (m *MockNodeStore) FindByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	args := m.Called(ctx, id)
	if node, ok := args.Get(0).(*entities.Node); ok {
		return node, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNodeStore) FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error) {
	args := m.Called(ctx, ids)
	return nodes(args.Get(0)), args.Error(1)
}

func (m *MockNodeStore) FindByName(ctx context.Context, name string) ([]*entities.Node, error) {
	args := m.Called(ctx, name)
	return nodes(args.Get(0)), args.Error(1)
}

func (m *MockNodeStore) FindByType(ctx context.Context, nodeType string) ([]*entities.Node, error) {
	args := m.Called(ctx, nodeType)
	return nodes(args.Get(0)), args.Error(1)
}

func (m *MockNodeStore) List(ctx context.Context) ([]*entities.Node, error) {
	args := m.Called(ctx)
	return nodes(args.Get(0)), args.Error(1)
}

func (m *MockNodeStore) DeleteByID(ctx context.Context, id valueobjects.NodeID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNodeStore) AppendChildren(ctx context.Context, parentID valueobjects.NodeID, childIDs []valueobjects.NodeID) error {
	args := m.Called(ctx, parentID, childIDs)
	return args.Error(0)
}

func (m *MockNodeStore) DeleteAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockNodeStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func nodes(v interface{}) []*entities.Node {
	if list, ok := v.([]*entities.Node); ok {
		return list
	}
	return nil
}

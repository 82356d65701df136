package memory

import (
	"context"
	"sync"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"
)

// Compile-time interface check
var _ ports.NodeStore = (*NodeRepository)(nil)

// NodeRepository provides an in-memory implementation of NodeStore.
// Insertion order is preserved for List.
type NodeRepository struct {
	mu    sync.RWMutex
	nodes map[string]*entities.Node
	order []string
}

// NewNodeRepository creates a new in-memory node repository
func NewNodeRepository() *NodeRepository {
	return &NodeRepository{
		nodes: make(map[string]*entities.Node),
		order: make([]string, 0),
	}
}

// Create saves a new node under a fresh id
func (r *NodeRepository) Create(ctx context.Context, fields valueobjects.NodeFields, children []valueobjects.NodeID) (*entities.Node, error) {
	node := entities.ReconstructNode(valueobjects.NewNodeID(), fields, children)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes[node.ID().String()] = node
	r.order = append(r.order, node.ID().String())

	return clone(node), nil
}

// Update replaces a stored node
func (r *NodeRepository) Update(ctx context.Context, node *entities.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID().String()]; !exists {
		return pkgerrors.NewNotFoundError("node")
	}
	r.nodes[node.ID().String()] = clone(node)
	return nil
}

// FindByID retrieves a node by id
func (r *NodeRepository) FindByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[id.String()]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("node")
	}
	return clone(node), nil
}

// FindByIDs retrieves existing nodes in the order of ids
func (r *NodeRepository) FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Node, 0, len(ids))
	for _, id := range ids {
		if node, exists := r.nodes[id.String()]; exists {
			result = append(result, clone(node))
		}
	}
	return result, nil
}

// FindByName retrieves nodes with an exact name match
func (r *NodeRepository) FindByName(ctx context.Context, name string) ([]*entities.Node, error) {
	return r.filter(func(n *entities.Node) bool { return n.Name() == name }), nil
}

// FindByType retrieves nodes with an exact type match
func (r *NodeRepository) FindByType(ctx context.Context, nodeType string) ([]*entities.Node, error) {
	return r.filter(func(n *entities.Node) bool { return n.Type() == nodeType }), nil
}

// List retrieves all nodes in insertion order
func (r *NodeRepository) List(ctx context.Context) ([]*entities.Node, error) {
	return r.filter(func(*entities.Node) bool { return true }), nil
}

// DeleteByID removes a node
func (r *NodeRepository) DeleteByID(ctx context.Context, id valueobjects.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.String()
	if _, exists := r.nodes[key]; !exists {
		return pkgerrors.NewNotFoundError("node")
	}
	delete(r.nodes, key)

	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// AppendChildren appends child ids to a parent
func (r *NodeRepository) AppendChildren(ctx context.Context, parentID valueobjects.NodeID, childIDs []valueobjects.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, exists := r.nodes[parentID.String()]
	if !exists {
		return pkgerrors.NewNotFoundError("node")
	}

	children := append(parent.Children(), childIDs...)
	r.nodes[parentID.String()] = entities.ReconstructNode(parent.ID(), parent.Fields(), children)
	return nil
}

// DeleteAll removes every node
func (r *NodeRepository) DeleteAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.nodes)
	r.nodes = make(map[string]*entities.Node)
	r.order = make([]string, 0)
	return count, nil
}

// Ping always succeeds
func (r *NodeRepository) Ping(ctx context.Context) error {
	return nil
}

// Count returns the number of stored nodes
func (r *NodeRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

func (r *NodeRepository) filter(match func(*entities.Node) bool) []*entities.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Node, 0)
	for _, key := range r.order {
		node := r.nodes[key]
		if match(node) {
			result = append(result, clone(node))
		}
	}
	return result
}

// clone keeps callers from mutating stored state
func clone(node *entities.Node) *entities.Node {
	return entities.ReconstructNode(node.ID(), node.Fields(), node.Children())
}

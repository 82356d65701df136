package services

import (
	"context"
	"fmt"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"
)

// NodeResult is the read model returned by queries and mutations.
// Children holds the child documents one level deep; on a child result it is
// nil and only ChildIDs is filled.
type NodeResult struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Description string        `json:"description"`
	ChildIDs    []string      `json:"childIds"`
	Children    []*NodeResult `json:"children"`
}

// NodeResolver populates the children of nodes with their documents
type NodeResolver struct {
	store ports.NodeStore
}

// NewNodeResolver creates a new node resolver
func NewNodeResolver(store ports.NodeStore) *NodeResolver {
	return &NodeResolver{store: store}
}

// Resolve converts nodes into results with one level of children populated.
// All child ids are fetched in a single lookup. Dangling ids stay in ChildIDs
// and are left out of Children.
func (r *NodeResolver) Resolve(ctx context.Context, nodes []*entities.Node) ([]*NodeResult, error) {
	seen := make(map[string]bool)
	wanted := make([]valueobjects.NodeID, 0)
	for _, node := range nodes {
		for _, childID := range node.Children() {
			if !seen[childID.String()] {
				seen[childID.String()] = true
				wanted = append(wanted, childID)
			}
		}
	}

	byID := make(map[string]*entities.Node, len(wanted))
	if len(wanted) > 0 {
		children, err := r.store.FindByIDs(ctx, wanted)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve children: %w", err)
		}
		for _, child := range children {
			byID[child.ID().String()] = child
		}
	}

	results := make([]*NodeResult, 0, len(nodes))
	for _, node := range nodes {
		result := ToNodeResult(node)
		result.Children = make([]*NodeResult, 0, node.ChildCount())
		for _, childID := range node.Children() {
			if child, ok := byID[childID.String()]; ok {
				result.Children = append(result.Children, ToNodeResult(child))
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// ResolveOne resolves a single node
func (r *NodeResolver) ResolveOne(ctx context.Context, node *entities.Node) (*NodeResult, error) {
	results, err := r.Resolve(ctx, []*entities.Node{node})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ToNodeResult maps a node without resolving its children
func ToNodeResult(node *entities.Node) *NodeResult {
	return &NodeResult{
		ID:          node.ID().String(),
		Name:        node.Name(),
		Type:        node.Type(),
		Description: node.Description(),
		ChildIDs:    valueobjects.NodeIDStrings(node.Children()),
	}
}

// EnsureNodesExist returns NOT_FOUND when any of ids is not stored
func EnsureNodesExist(ctx context.Context, store ports.NodeStore, ids []valueobjects.NodeID) error {
	if len(ids) == 0 {
		return nil
	}

	unique := make([]valueobjects.NodeID, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id.String()] {
			seen[id.String()] = true
			unique = append(unique, id)
		}
	}

	found, err := store.FindByIDs(ctx, unique)
	if err != nil {
		return fmt.Errorf("failed to load child nodes: %w", err)
	}
	if len(found) == len(unique) {
		return nil
	}

	present := make(map[string]bool, len(found))
	for _, node := range found {
		present[node.ID().String()] = true
	}
	missing := make([]string, 0, len(unique)-len(found))
	for _, id := range unique {
		if !present[id.String()] {
			missing = append(missing, id.String())
		}
	}

	return pkgerrors.NewNotFoundError("one or more child nodes").
		WithCode("CHILD_NOT_FOUND").
		WithDetail("missing", missing)
}

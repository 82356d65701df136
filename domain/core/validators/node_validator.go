package validators

import (
	"context"
	"fmt"

	"nodegraph/domain/config"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	"nodegraph/pkg/errors"
)

// NodeLoader loads nodes by id. Unknown ids are skipped, not reported.
type NodeLoader interface {
	FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error)
}

// NodeValidator validates node-related domain rules that need more than a
// single node to decide
type NodeValidator struct {
	cfg *config.DomainConfig
}

// NewNodeValidator creates a new node validator
func NewNodeValidator(cfg *config.DomainConfig) *NodeValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeValidator{cfg: cfg}
}

// ValidateChildLinks rejects a child append that would make parentID
// reachable from itself. The walk follows stored child references
// breadth-first and tolerates cycles and dangling ids already in the store.
func (v *NodeValidator) ValidateChildLinks(
	ctx context.Context,
	parentID valueobjects.NodeID,
	childIDs []valueobjects.NodeID,
	loader NodeLoader,
) error {
	if !v.cfg.RejectChildCycles || len(childIDs) == 0 {
		return nil
	}

	for _, childID := range childIDs {
		if childID.Equals(parentID) {
			return cycleError(parentID, childID)
		}
	}

	visited := make(map[string]bool)
	frontier := make([]valueobjects.NodeID, 0, len(childIDs))
	for _, childID := range childIDs {
		if !visited[childID.String()] {
			visited[childID.String()] = true
			frontier = append(frontier, childID)
		}
	}

	for len(frontier) > 0 {
		nodes, err := loader.FindByIDs(ctx, frontier)
		if err != nil {
			return fmt.Errorf("failed to walk child references: %w", err)
		}

		next := make([]valueobjects.NodeID, 0)
		for _, node := range nodes {
			for _, grandchild := range node.Children() {
				if grandchild.Equals(parentID) {
					return cycleError(parentID, node.ID())
				}
				if !visited[grandchild.String()] {
					visited[grandchild.String()] = true
					next = append(next, grandchild)
				}
			}
		}
		frontier = next
	}

	return nil
}

func cycleError(parentID, via valueobjects.NodeID) error {
	return errors.NewValidationError("adding these children would create a reference cycle").
		WithCode("CYCLIC_REFERENCE").
		WithDetail("nodeId", parentID.String()).
		WithDetail("via", via.String())
}

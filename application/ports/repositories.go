package ports

import (
	"context"

	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
)

// NodeStore defines the interface for node persistence.
// Every call is an independent write or read; there is no transaction
// spanning several calls.
type NodeStore interface {
	// Create persists a new node and assigns its id
	Create(ctx context.Context, fields valueobjects.NodeFields, children []valueobjects.NodeID) (*entities.Node, error)

	// Update replaces the stored document of an existing node
	Update(ctx context.Context, node *entities.Node) error

	// FindByID retrieves a node by its id, NOT_FOUND if absent
	FindByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error)

	// FindByIDs retrieves the nodes that exist among ids, in the order of ids
	FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error)

	// FindByName retrieves every node with exactly this name
	FindByName(ctx context.Context, name string) ([]*entities.Node, error)

	// FindByType retrieves every node with exactly this type label
	FindByType(ctx context.Context, nodeType string) ([]*entities.Node, error)

	// List retrieves all nodes
	List(ctx context.Context) ([]*entities.Node, error)

	// DeleteByID removes a node, NOT_FOUND if absent
	DeleteByID(ctx context.Context, id valueobjects.NodeID) error

	// AppendChildren appends child ids to a parent's list, NOT_FOUND if the parent is absent
	AppendChildren(ctx context.Context, parentID valueobjects.NodeID, childIDs []valueobjects.NodeID) error

	// DeleteAll removes every node and returns how many were removed
	DeleteAll(ctx context.Context) (int, error)

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}

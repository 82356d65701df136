package entities

import (
	"fmt"

	"nodegraph/domain/config"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"
)

// Node is a named, typed document that references its children by id.
// A node never owns its children; removing a child elsewhere leaves a
// dangling id here.
type Node struct {
	id       valueobjects.NodeID
	fields   valueobjects.NodeFields
	children []valueobjects.NodeID
}

// NewNode creates a new node with no children
func NewNode(id valueobjects.NodeID, fields valueobjects.NodeFields) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}

	return &Node{
		id:       id,
		fields:   fields,
		children: []valueobjects.NodeID{},
	}, nil
}

// ReconstructNode rebuilds a node from stored data
func ReconstructNode(id valueobjects.NodeID, fields valueobjects.NodeFields, children []valueobjects.NodeID) *Node {
	copied := make([]valueobjects.NodeID, len(children))
	copy(copied, children)

	return &Node{
		id:       id,
		fields:   fields,
		children: copied,
	}
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Fields returns the node's descriptive fields
func (n *Node) Fields() valueobjects.NodeFields {
	return n.fields
}

// Name returns the node name
func (n *Node) Name() string {
	return n.fields.Name()
}

// Type returns the node type label
func (n *Node) Type() string {
	return n.fields.Type()
}

// Description returns the node description
func (n *Node) Description() string {
	return n.fields.Description()
}

// Children returns the child references in order
func (n *Node) Children() []valueobjects.NodeID {
	children := make([]valueobjects.NodeID, len(n.children))
	copy(children, n.children)
	return children
}

// ChildCount returns the number of child references
func (n *Node) ChildCount() int {
	return len(n.children)
}

// HasChild reports whether id is among the node's child references
func (n *Node) HasChild(id valueobjects.NodeID) bool {
	for _, child := range n.children {
		if child.Equals(id) {
			return true
		}
	}
	return false
}

// UpdateFields replaces the node's descriptive fields
func (n *Node) UpdateFields(fields valueobjects.NodeFields) {
	n.fields = fields
}

// ReplaceChildren replaces the whole child list
func (n *Node) ReplaceChildren(children []valueobjects.NodeID) error {
	return n.ReplaceChildrenWithConfig(children, config.DefaultDomainConfig())
}

// ReplaceChildrenWithConfig replaces the whole child list with configuration
func (n *Node) ReplaceChildrenWithConfig(children []valueobjects.NodeID, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if len(children) > cfg.MaxChildrenPerNode {
		return pkgerrors.NewValidationError(fmt.Sprintf("maximum children reached: %d", cfg.MaxChildrenPerNode))
	}

	copied := make([]valueobjects.NodeID, len(children))
	copy(copied, children)
	n.children = copied
	return nil
}

// AppendChildren appends child references in the given order
func (n *Node) AppendChildren(children ...valueobjects.NodeID) error {
	return n.AppendChildrenWithConfig(config.DefaultDomainConfig(), children...)
}

// AppendChildrenWithConfig appends child references with configuration
func (n *Node) AppendChildrenWithConfig(cfg *config.DomainConfig, children ...valueobjects.NodeID) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if len(n.children)+len(children) > cfg.MaxChildrenPerNode {
		return pkgerrors.NewValidationError(fmt.Sprintf("maximum children reached: %d", cfg.MaxChildrenPerNode))
	}

	for _, child := range children {
		if child.IsZero() {
			return pkgerrors.NewValidationError("child ID cannot be empty")
		}
	}

	n.children = append(n.children, children...)
	return nil
}

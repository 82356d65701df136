// Package fixtures builds domain objects for tests.
package fixtures

import (
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
)

// NodeBuilder helps create test nodes with default values
type NodeBuilder struct {
	id          valueobjects.NodeID
	name        string
	nodeType    string
	description string
	children    []valueobjects.NodeID
}

func NewNodeBuilder() *NodeBuilder {
	return &NodeBuilder{
		id:          valueobjects.NewNodeID(),
		name:        "Test Node",
		nodeType:    "test",
		description: "Test description",
	}
}

func (b *NodeBuilder) WithID(id valueobjects.NodeID) *NodeBuilder {
	b.id = id
	return b
}

func (b *NodeBuilder) WithName(name string) *NodeBuilder {
	b.name = name
	return b
}

func (b *NodeBuilder) WithType(nodeType string) *NodeBuilder {
	b.nodeType = nodeType
	return b
}

func (b *NodeBuilder) WithDescription(description string) *NodeBuilder {
	b.description = description
	return b
}

func (b *NodeBuilder) WithChildren(children ...valueobjects.NodeID) *NodeBuilder {
	b.children = append(b.children, children...)
	return b
}

// MustBuild builds the node and panics on invalid fields
func (b *NodeBuilder) MustBuild() *entities.Node {
	fields, err := valueobjects.NewNodeFields(b.name, b.nodeType, b.description)
	if err != nil {
		panic(err)
	}
	return entities.ReconstructNode(b.id, fields, b.children)
}

// MustFields builds NodeFields and panics on invalid input
func MustFields(name, nodeType, description string) valueobjects.NodeFields {
	fields, err := valueobjects.NewNodeFields(name, nodeType, description)
	if err != nil {
		panic(err)
	}
	return fields
}

package queries

import (
	"strings"

	pkgerrors "nodegraph/pkg/errors"
	"nodegraph/pkg/utils"
)

// GetNodeByIDQuery fetches one node with its children resolved
type GetNodeByIDQuery struct {
	ID string `json:"id" validate:"required,uuid"`
}

// Validate validates the GetNodeByIDQuery
func (q GetNodeByIDQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetNodesByTypeQuery fetches every node with an exact type label
type GetNodesByTypeQuery struct {
	Type string `json:"type"`
}

// Validate validates the GetNodesByTypeQuery
func (q GetNodesByTypeQuery) Validate() error {
	if strings.TrimSpace(q.Type) == "" {
		return pkgerrors.NewValidationError("type is required").WithDetail("fields", []string{"type"})
	}
	return nil
}

// GetNodesByNameQuery fetches every node with an exact name
type GetNodesByNameQuery struct {
	Name string `json:"name"`
}

// Validate validates the GetNodesByNameQuery
func (q GetNodesByNameQuery) Validate() error {
	if strings.TrimSpace(q.Name) == "" {
		return pkgerrors.NewValidationError("name is required").WithDetail("fields", []string{"name"})
	}
	return nil
}

// ListNodesQuery fetches every node
type ListNodesQuery struct{}

// Validate validates the ListNodesQuery
func (q ListNodesQuery) Validate() error {
	return nil
}

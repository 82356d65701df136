package commands

import (
	"strings"

	pkgerrors "nodegraph/pkg/errors"
	"nodegraph/pkg/utils"
)

// AddNodeCommand creates a standalone node, optionally linking existing
// children
type AddNodeCommand struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Children    []string `json:"children,omitempty" validate:"omitempty,dive,required,uuid"`
}

// Validate validates the command
func (c AddNodeCommand) Validate() error {
	if err := requireNodeFields(c.Name, c.Type, c.Description); err != nil {
		return err
	}
	return utils.ValidateStruct(c)
}

// UpdateNodeCommand replaces the fields of an existing node. A nil Children
// leaves the child list untouched; an empty non-nil slice clears it.
type UpdateNodeCommand struct {
	ID          string   `json:"id" validate:"required,uuid"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Children    []string `json:"children,omitempty" validate:"omitempty,dive,required,uuid"`
}

// Validate validates the command
func (c UpdateNodeCommand) Validate() error {
	if err := requireNodeFields(c.Name, c.Type, c.Description); err != nil {
		return err
	}
	return utils.ValidateStruct(c)
}

// AddChildrenCommand appends existing nodes to a parent's child list
type AddChildrenCommand struct {
	NodeID      string   `json:"nodeId" validate:"required,uuid"`
	ChildrenIDs []string `json:"childrenIds" validate:"dive,required,uuid"`
}

// Validate validates the command
func (c AddChildrenCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// requireNodeFields reports the three mandatory fields together
func requireNodeFields(name, nodeType, description string) error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(nodeType) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.NewValidationError("name, type, and description are required").
		WithCode("REQUIRED_FIELDS").
		WithDetail("fields", missing)
}

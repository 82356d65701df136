package valueobjects

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"nodegraph/domain/config"
	pkgerrors "nodegraph/pkg/errors"
)

// NodeFields is the value object holding a node's descriptive fields
type NodeFields struct {
	name        string
	nodeType    string
	description string
}

// NewNodeFields creates fields with validation using default configuration
func NewNodeFields(name, nodeType, description string) (NodeFields, error) {
	return NewNodeFieldsWithConfig(name, nodeType, description, config.DefaultDomainConfig())
}

// NewNodeFieldsWithConfig creates fields with validation and configuration.
// All violations are reported together.
func NewNodeFieldsWithConfig(name, nodeType, description string, cfg *config.DomainConfig) (NodeFields, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	violations := pkgerrors.NewValidationErrors()
	CheckFields("", name, nodeType, description, cfg, violations)
	if err := violations.ToAppError(); err != nil {
		return NodeFields{}, err
	}

	return NodeFields{
		name:        name,
		nodeType:    nodeType,
		description: description,
	}, nil
}

// ReconstructNodeFields rebuilds fields from persisted data without validation
func ReconstructNodeFields(name, nodeType, description string) NodeFields {
	return NodeFields{
		name:        name,
		nodeType:    nodeType,
		description: description,
	}
}

// CheckFields records every violation of the field rules into violations.
// prefix is prepended to field names so nested descriptors can be reported
// by path.
func CheckFields(prefix, name, nodeType, description string, cfg *config.DomainConfig, violations *pkgerrors.ValidationErrors) {
	CheckField(prefix+"name", name, cfg.MaxNameLength, violations)
	CheckField(prefix+"type", nodeType, cfg.MaxTypeLength, violations)
	CheckField(prefix+"description", description, cfg.MaxDescriptionLength, violations)
}

// CheckField records a violation when value is blank or longer than maxLength
func CheckField(field, value string, maxLength int, violations *pkgerrors.ValidationErrors) {
	if strings.TrimSpace(value) == "" {
		violations.Add(field, fmt.Sprintf("%s is required", field))
		return
	}
	if maxLength > 0 && utf8.RuneCountInString(value) > maxLength {
		violations.Add(field, fmt.Sprintf("%s exceeds maximum length of %d characters", field, maxLength))
	}
}

// Name returns the node name
func (f NodeFields) Name() string {
	return f.name
}

// Type returns the node type label
func (f NodeFields) Type() string {
	return f.nodeType
}

// Description returns the node description
func (f NodeFields) Description() string {
	return f.description
}

// Equals checks if two field sets are equal
func (f NodeFields) Equals(other NodeFields) bool {
	return f.name == other.name &&
		f.nodeType == other.nodeType &&
		f.description == other.description
}

package valueobjects

import (
	"errors"

	pkgerrors "nodegraph/pkg/errors"

	"github.com/google/uuid"
)

// NodeID is a value object representing a unique node identifier
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, pkgerrors.NewValidationError("node ID cannot be empty").WithCode("INVALID_NODE_ID")
	}
	if !isValidUUID(id) {
		return NodeID{}, pkgerrors.NewValidationError("node ID must be a valid UUID").
			WithCode("INVALID_NODE_ID").
			WithDetail("id", id)
	}
	return NodeID{value: id}, nil
}

// NodeIDsFromStrings converts a list of raw ids, failing on the first invalid one
func NodeIDsFromStrings(ids []string) ([]NodeID, error) {
	result := make([]NodeID, 0, len(ids))
	for _, raw := range ids {
		id, err := NewNodeIDFromString(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, nil
}

// NodeIDStrings converts NodeIDs back to their string form
func NodeIDStrings(ids []NodeID) []string {
	result := make([]string, len(ids))
	for i, id := range ids {
		result[i] = id.String()
	}
	return result
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NodeID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// isValidUUID validates if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

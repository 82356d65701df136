package commands

import (
	"testing"

	pkgerrors "nodegraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validID = "6f1c1a52-8a4c-4a7e-9a55-0b1f7f9d2c11"

func TestAddNodeCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     AddNodeCommand
		wantErr string
		fields  []string
	}{
		{
			name: "valid without children",
			cmd:  AddNodeCommand{Name: "A", Type: "t", Description: "d"},
		},
		{
			name: "valid with children",
			cmd:  AddNodeCommand{Name: "A", Type: "t", Description: "d", Children: []string{validID}},
		},
		{
			name:    "missing type and description",
			cmd:     AddNodeCommand{Name: "A", Type: " "},
			wantErr: "name, type, and description are required",
			fields:  []string{"type", "description"},
		},
		{
			name:    "malformed child id",
			cmd:     AddNodeCommand{Name: "A", Type: "t", Description: "d", Children: []string{"abc"}},
			wantErr: "children[0] must be a valid node id",
			fields:  []string{"children[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.fields, pkgerrors.GetAppError(err).Details["fields"])
		})
	}
}

func TestUpdateNodeCommand_Validate(t *testing.T) {
	assert.NoError(t, UpdateNodeCommand{ID: validID, Name: "A", Type: "t", Description: "d"}.Validate())

	err := UpdateNodeCommand{ID: "not-a-uuid", Name: "A", Type: "t", Description: "d"}.Validate()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	err = UpdateNodeCommand{ID: validID}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name, type, and description are required")
}

func TestAddChildrenCommand_Validate(t *testing.T) {
	assert.NoError(t, AddChildrenCommand{NodeID: validID, ChildrenIDs: []string{validID}}.Validate())
	assert.NoError(t, AddChildrenCommand{NodeID: validID}.Validate())

	err := AddChildrenCommand{ChildrenIDs: []string{"x"}}.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"childrenIds[0]", "nodeId"}, pkgerrors.GetAppError(err).Details["fields"])
}

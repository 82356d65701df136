package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"nodegraph/domain/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateDescriptorFile_OK(t *testing.T) {
	path := writeFile(t, `
- name: A
  type: group
  description: top
  children:
    - name: B
      type: item
      description: nested
`)

	var out bytes.Buffer
	err := validateDescriptorFile(&out, path, config.DefaultDomainConfig())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "ok, 2 node(s)")
}

func TestValidateDescriptorFile_ListsViolations(t *testing.T) {
	path := writeFile(t, `
- name: A
  type: group
  children:
    - name: B
      description: nested
`)

	var out bytes.Buffer
	err := validateDescriptorFile(&out, path, config.DefaultDomainConfig())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 violation(s)")
	assert.Contains(t, out.String(), "[0].description")
	assert.Contains(t, out.String(), "[0].children[0].type")
}

func TestValidateDescriptorFile_MissingFile(t *testing.T) {
	var out bytes.Buffer
	err := validateDescriptorFile(&out, filepath.Join(t.TempDir(), "absent.yaml"), config.DefaultDomainConfig())

	require.Error(t, err)
	assert.Empty(t, out.String())
}

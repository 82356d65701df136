// Package source reads node descriptor documents from disk.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"nodegraph/application/importer"
	"nodegraph/domain/config"
	pkgerrors "nodegraph/pkg/errors"

	"gopkg.in/yaml.v3"
)

// LoadYAMLFile reads and validates a descriptor file. JSON files are
// accepted since JSON is valid YAML.
func LoadYAMLFile(path string, cfg *config.DomainConfig) ([]importer.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file %s: %w", path, err)
	}
	descriptors, err := ParseYAML(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load import file %s: %w", path, err)
	}
	return descriptors, nil
}

// DecodeYAML reads a descriptor document from r
func DecodeYAML(r io.Reader, cfg *config.DomainConfig) ([]importer.Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor document: %w", err)
	}
	return ParseYAML(data, cfg)
}

// ParseYAML decodes a descriptor document held in memory
func ParseYAML(data []byte, cfg *config.DomainConfig) ([]importer.Descriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, pkgerrors.NewValidationError("input must be a list of node descriptors").
			WithCode("EMPTY_DOCUMENT")
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("malformed YAML: %v", err)).
			WithCode("MALFORMED_DOCUMENT").
			WithCause(err)
	}

	return importer.DecodeDescriptors(raw, cfg)
}

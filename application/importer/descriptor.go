package importer

import (
	"fmt"

	"nodegraph/domain/config"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"
)

// Descriptor is the input form of a node before it is persisted
type Descriptor struct {
	Name        string       `json:"name" yaml:"name"`
	Type        string       `json:"type" yaml:"type"`
	Description string       `json:"description" yaml:"description"`
	Children    []Descriptor `json:"children,omitempty" yaml:"children,omitempty"`
}

// Count returns the number of descriptors in the forest
func Count(descriptors []Descriptor) int {
	total := 0
	for _, d := range descriptors {
		total += 1 + Count(d.Children)
	}
	return total
}

// DecodeDescriptors converts a generically decoded YAML or JSON document into
// descriptors. The whole tree is checked before anything is returned: the top
// level must be a list, and every descriptor at every depth needs string
// name, type and description. All violations are reported in one
// VALIDATION error keyed by path, e.g. "[0].children[1].type".
func DecodeDescriptors(raw interface{}, cfg *config.DomainConfig) ([]Descriptor, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, pkgerrors.NewValidationError("input must be a list of node descriptors").
			WithCode("INPUT_NOT_A_LIST").
			WithDetail("fields", []string{"$"})
	}

	violations := pkgerrors.NewValidationErrors()
	descriptors := decodeList(items, "", nil, cfg, violations)
	if err := violations.ToAppError(); err != nil {
		return nil, err
	}
	return descriptors, nil
}

func decodeList(items []interface{}, prefix string, ancestors []string, cfg *config.DomainConfig, violations *pkgerrors.ValidationErrors) []Descriptor {
	descriptors := make([]Descriptor, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		descriptors = append(descriptors, decodeOne(item, path, ancestors, cfg, violations))
	}
	return descriptors
}

func decodeOne(item interface{}, path string, ancestors []string, cfg *config.DomainConfig, violations *pkgerrors.ValidationErrors) Descriptor {
	var d Descriptor

	fields, ok := asMap(item)
	if !ok {
		violations.Add(path, fmt.Sprintf("%s must be a mapping", path))
		return d
	}

	d.Name = stringField(fields, path, "name", cfg.MaxNameLength, violations)
	d.Type = stringField(fields, path, "type", cfg.MaxTypeLength, violations)
	d.Description = stringField(fields, path, "description", cfg.MaxDescriptionLength, violations)
	checkAncestors(path, d.Name, ancestors, violations)

	rawChildren, present := fields["children"]
	if !present || rawChildren == nil {
		return d
	}

	childPath := path + ".children"
	children, ok := rawChildren.([]interface{})
	if !ok {
		violations.Add(childPath, fmt.Sprintf("%s must be a list", childPath))
		return d
	}
	if len(children) > 0 && depthExceeded(ancestors, cfg) {
		violations.Add(childPath, fmt.Sprintf("%s exceeds maximum nesting depth of %d", childPath, cfg.MaxImportDepth))
		return d
	}

	d.Children = decodeList(children, childPath, withAncestor(ancestors, d.Name), cfg, violations)
	return d
}

func stringField(fields map[string]interface{}, path, key string, maxLength int, violations *pkgerrors.ValidationErrors) string {
	field := path + "." + key

	value, present := fields[key]
	if !present || value == nil {
		violations.Add(field, fmt.Sprintf("%s is required", field))
		return ""
	}

	s, ok := value.(string)
	if !ok {
		violations.Add(field, fmt.Sprintf("%s must be a string", field))
		return ""
	}

	valueobjects.CheckField(field, s, maxLength, violations)
	return s
}

// asMap accepts both map shapes produced by YAML decoders
func asMap(item interface{}) (map[string]interface{}, bool) {
	switch m := item.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		converted := make(map[string]interface{}, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			converted[key] = v
		}
		return converted, true
	default:
		return nil, false
	}
}

// ValidateDescriptors checks an already-typed descriptor forest with the same
// rules DecodeDescriptors applies.
func ValidateDescriptors(descriptors []Descriptor, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	violations := pkgerrors.NewValidationErrors()
	validateList(descriptors, "", nil, cfg, violations)
	return violations.ToAppError()
}

func validateList(descriptors []Descriptor, prefix string, ancestors []string, cfg *config.DomainConfig, violations *pkgerrors.ValidationErrors) {
	for i, d := range descriptors {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		valueobjects.CheckFields(path+".", d.Name, d.Type, d.Description, cfg, violations)
		checkAncestors(path, d.Name, ancestors, violations)

		if len(d.Children) == 0 {
			continue
		}
		childPath := path + ".children"
		if depthExceeded(ancestors, cfg) {
			violations.Add(childPath, fmt.Sprintf("%s exceeds maximum nesting depth of %d", childPath, cfg.MaxImportDepth))
			continue
		}
		validateList(d.Children, childPath, withAncestor(ancestors, d.Name), cfg, violations)
	}
}

// checkAncestors rejects a descriptor named like one of its ancestors. The
// replace step would otherwise delete the parent before the child is linked.
func checkAncestors(path, name string, ancestors []string, violations *pkgerrors.ValidationErrors) {
	if name == "" {
		return
	}
	for _, ancestor := range ancestors {
		if ancestor == name {
			field := path + ".name"
			violations.Add(field, fmt.Sprintf("%s repeats the name of an ancestor (%q)", field, name))
			return
		}
	}
}

// depthExceeded reports whether children below ancestors would pass the
// configured nesting limit
func depthExceeded(ancestors []string, cfg *config.DomainConfig) bool {
	return cfg.MaxImportDepth > 0 && len(ancestors)+1 >= cfg.MaxImportDepth
}

func withAncestor(ancestors []string, name string) []string {
	next := make([]string, len(ancestors), len(ancestors)+1)
	copy(next, ancestors)
	return append(next, name)
}

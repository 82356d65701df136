package config

// DomainConfig holds all configurable business rules and constraints.
// A zero length or depth limit means unlimited.
type DomainConfig struct {
	// Node field constraints
	MaxNameLength        int
	MaxTypeLength        int
	MaxDescriptionLength int

	// Child reference constraints, enforced by the API mutations
	MaxChildrenPerNode int
	RejectChildCycles  bool

	// Import constraints
	MaxImportDepth int
}

// DefaultDomainConfig returns the default domain configuration. Descriptors
// may nest to any depth and carry fields of any length.
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxChildrenPerNode: 1000,
		RejectChildCycles:  true,
	}
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxChildrenPerNode = 10000

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

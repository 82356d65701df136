//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"nodegraph/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideMetrics,
	ProvideStore,
	ProvideNodeStore,
	ProvideNodeResolver,
	ProvideNodeValidator,
	ProvideImporter,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideGraphQLHandler,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}

package di

import (
	"context"
	"fmt"
	"net/http"

	"nodegraph/application/commands/bus"
	"nodegraph/application/importer"
	"nodegraph/application/ports"
	querybus "nodegraph/application/queries/bus"
	domainconfig "nodegraph/domain/config"
	"nodegraph/infrastructure/config"
	"nodegraph/infrastructure/source"
	pkgerrors "nodegraph/pkg/errors"
	"nodegraph/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	Store        ports.NodeStore
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Importer     *importer.Importer
	Metrics      *observability.Collector
	HTTPHandler  http.Handler
}

// ImportOnStart loads IMPORT_FILE into the store when IMPORT_ON_START is set.
// In strict mode any failure is returned; otherwise it is logged and the
// caller carries on. A held import lock is never a failure.
func (c *Container) ImportOnStart(ctx context.Context) error {
	if !c.Config.ImportOnStart {
		return nil
	}

	err := c.runImport(ctx)
	if err == nil {
		return nil
	}
	// another instance holds the import lock and is loading the same file
	if pkgerrors.IsLockHeld(err) {
		c.Logger.Info("Startup import already running elsewhere, skipping",
			zap.String("file", c.Config.ImportFile),
		)
		return nil
	}
	if c.Config.ImportStrict {
		return err
	}
	c.Logger.Error("Startup import failed, continuing without it",
		zap.String("file", c.Config.ImportFile),
		zap.Error(err),
	)
	return nil
}

func (c *Container) runImport(ctx context.Context) error {
	descriptors, err := source.LoadYAMLFile(c.Config.ImportFile, c.DomainConfig)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", c.Config.ImportFile, err)
	}

	result, err := c.Importer.Import(ctx, descriptors, importer.Options{Reset: c.Config.ImportReset})
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", c.Config.ImportFile, err)
	}

	c.Logger.Info("Startup import finished",
		zap.String("file", c.Config.ImportFile),
		zap.Int("created", result.Created),
		zap.Int("replaced", result.Replaced),
		zap.Int("reset", result.Reset),
	)
	return nil
}

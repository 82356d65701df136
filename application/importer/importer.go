// Package importer materializes a nested tree of node descriptors as linked
// documents in a NodeStore.
package importer

import (
	"context"
	"fmt"
	"time"

	"nodegraph/application/ports"
	"nodegraph/domain/config"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"

	"go.uber.org/zap"
)

// Metrics receives import counters
type Metrics interface {
	RecordNodeCreated(source string)
	RecordNodeReplaced(count int)
	RecordImport(status string, duration time.Duration)
}

// Locker serializes imports that share a store. Release is called once the
// import finishes, whatever its outcome.
type Locker interface {
	Acquire(ctx context.Context, resource string, ttl time.Duration) (release func(context.Context) error, err error)
}

const (
	importLockResource = "import"
	importLockTTL      = 15 * time.Minute
)

// Options controls a single import run
type Options struct {
	// Reset removes every stored node before importing
	Reset bool
}

// Result summarizes a finished import
type Result struct {
	Created  int
	Replaced int
	Reset    int
	RootIDs  []string
	Duration time.Duration
}

// Importer runs the recursive upsert
type Importer struct {
	store   ports.NodeStore
	cfg     *config.DomainConfig
	metrics Metrics
	locker  Locker
	logger  *zap.Logger
}

// NewImporter creates a new importer. metrics may be nil.
func NewImporter(store ports.NodeStore, cfg *config.DomainConfig, metrics Metrics, logger *zap.Logger) *Importer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// WithLocker makes every Import hold the shared import lock while it writes
func (i *Importer) WithLocker(locker Locker) *Importer {
	i.locker = locker
	return i
}

// Import validates the whole forest and then writes it depth-first in input
// order. Each write is committed on its own, so a store failure part way
// through leaves the nodes written so far in place.
func (i *Importer) Import(ctx context.Context, descriptors []Descriptor, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{RootIDs: make([]string, 0, len(descriptors))}

	if err := ValidateDescriptors(descriptors, i.cfg); err != nil {
		i.finish("invalid", start)
		return nil, err
	}

	if i.locker != nil {
		release, err := i.locker.Acquire(ctx, importLockResource, importLockTTL)
		if err != nil {
			i.finish("locked", start)
			return nil, err
		}
		defer func() {
			// the caller's context may already be done
			if err := release(context.Background()); err != nil {
				i.logger.Warn("Failed to release import lock", zap.Error(err))
			}
		}()
	}

	if opts.Reset {
		removed, err := i.store.DeleteAll(ctx)
		if err != nil {
			i.finish("failed", start)
			return nil, storeError("delete all", err)
		}
		result.Reset = removed
		i.logger.Info("Cleared node store before import", zap.Int("removed", removed))
	}

	for _, d := range descriptors {
		id, err := i.upsert(ctx, d, nil, result)
		if err != nil {
			result.Duration = time.Since(start)
			i.finish("failed", start)
			return result, err
		}
		result.RootIDs = append(result.RootIDs, id.String())
	}

	result.Duration = time.Since(start)
	i.finish("success", start)

	i.logger.Info("Import completed",
		zap.Int("created", result.Created),
		zap.Int("replaced", result.Replaced),
		zap.Int("roots", len(result.RootIDs)),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

// upsert replaces any same-named nodes with a fresh node built from d, links
// it under parent and recurses into d.Children
func (i *Importer) upsert(ctx context.Context, d Descriptor, parent *valueobjects.NodeID, result *Result) (valueobjects.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return valueobjects.NodeID{}, err
	}

	replaced, err := i.ReplaceByName(ctx, d.Name)
	if err != nil {
		return valueobjects.NodeID{}, err
	}
	result.Replaced += replaced

	fields, err := valueobjects.NewNodeFieldsWithConfig(d.Name, d.Type, d.Description, i.cfg)
	if err != nil {
		return valueobjects.NodeID{}, err
	}

	node, err := i.store.Create(ctx, fields, nil)
	if err != nil {
		return valueobjects.NodeID{}, storeError("create", err)
	}
	result.Created++
	if i.metrics != nil {
		i.metrics.RecordNodeCreated("import")
	}

	if parent != nil {
		if err := i.store.AppendChildren(ctx, *parent, []valueobjects.NodeID{node.ID()}); err != nil {
			return valueobjects.NodeID{}, storeError("append children", err)
		}
	}

	i.logger.Debug("Imported node",
		zap.String("nodeID", node.ID().String()),
		zap.String("name", node.Name()),
	)

	id := node.ID()
	for _, child := range d.Children {
		if _, err := i.upsert(ctx, child, &id, result); err != nil {
			return valueobjects.NodeID{}, err
		}
	}

	return id, nil
}

// ReplaceByName deletes every stored node named name and returns how many
// were removed. References to the removed ids held by other nodes are left
// dangling.
func (i *Importer) ReplaceByName(ctx context.Context, name string) (int, error) {
	existing, err := i.store.FindByName(ctx, name)
	if err != nil {
		return 0, storeError("find by name", err)
	}

	removed := 0
	for _, node := range existing {
		if err := i.store.DeleteByID(ctx, node.ID()); err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return removed, storeError("delete", err)
		}
		removed++

		i.logger.Info("Replacing existing node",
			zap.String("name", name),
			zap.String("oldNodeID", node.ID().String()),
			zap.Int("danglingChildren", node.ChildCount()),
		)
	}

	if removed > 0 && i.metrics != nil {
		i.metrics.RecordNodeReplaced(removed)
	}
	return removed, nil
}

func (i *Importer) finish(status string, start time.Time) {
	if i.metrics != nil {
		i.metrics.RecordImport(status, time.Since(start))
	}
}

// storeError keeps AppErrors from the store as they are and wraps anything
// else as a STORE error
func storeError(operation string, err error) error {
	if pkgerrors.IsAppError(err) {
		return err
	}
	return pkgerrors.NewStoreError(operation, err)
}

// Roots loads the root nodes of a finished import
func Roots(ctx context.Context, store ports.NodeStore, result *Result) ([]*entities.Node, error) {
	ids, err := valueobjects.NodeIDsFromStrings(result.RootIDs)
	if err != nil {
		return nil, fmt.Errorf("invalid root id in import result: %w", err)
	}
	return store.FindByIDs(ctx, ids)
}

package handlers

import (
	"context"
	"fmt"

	"nodegraph/application/commands"
	"nodegraph/application/ports"
	"nodegraph/application/services"
	"nodegraph/domain/config"
	"nodegraph/domain/core/validators"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"

	"go.uber.org/zap"
)

// AddChildrenHandler appends existing nodes to a parent. Either every id is
// appended or none is.
type AddChildrenHandler struct {
	store     ports.NodeStore
	resolver  *services.NodeResolver
	validator *validators.NodeValidator
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewAddChildrenHandler creates a new add children handler
func NewAddChildrenHandler(
	store ports.NodeStore,
	resolver *services.NodeResolver,
	validator *validators.NodeValidator,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *AddChildrenHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &AddChildrenHandler{
		store:     store,
		resolver:  resolver,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle executes the add children command
func (h *AddChildrenHandler) Handle(ctx context.Context, cmd commands.AddChildrenCommand) (*services.NodeResult, error) {
	parentID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return nil, err
	}
	childIDs, err := valueobjects.NodeIDsFromStrings(cmd.ChildrenIDs)
	if err != nil {
		return nil, err
	}

	parent, err := h.store.FindByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if len(childIDs) == 0 {
		return h.resolver.ResolveOne(ctx, parent)
	}

	if err := services.EnsureNodesExist(ctx, h.store, childIDs); err != nil {
		return nil, err
	}
	if err := h.validator.ValidateChildLinks(ctx, parentID, childIDs, h.store); err != nil {
		return nil, err
	}
	// capacity check against the loaded copy before anything is written
	if err := parent.AppendChildrenWithConfig(h.cfg, childIDs...); err != nil {
		return nil, err
	}

	if err := h.store.AppendChildren(ctx, parentID, childIDs); err != nil {
		return nil, fmt.Errorf("failed to append children: %w", err)
	}

	h.logger.Info("Children added to node",
		zap.String("nodeID", parentID.String()),
		zap.Strings("childIDs", cmd.ChildrenIDs),
	)

	updated, err := h.store.FindByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return h.resolver.ResolveOne(ctx, updated)
}

func tooManyChildren(cfg *config.DomainConfig) error {
	return pkgerrors.NewValidationError(fmt.Sprintf("a node may have at most %d children", cfg.MaxChildrenPerNode)).
		WithCode("TOO_MANY_CHILDREN")
}

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

	"go.uber.org/zap"
)

// UpdateNodeHandler handles node update commands
type UpdateNodeHandler struct {
	store     ports.NodeStore
	resolver  *services.NodeResolver
	validator *validators.NodeValidator
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

// NewUpdateNodeHandler creates a new update node handler
func NewUpdateNodeHandler(
	store ports.NodeStore,
	resolver *services.NodeResolver,
	validator *validators.NodeValidator,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *UpdateNodeHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &UpdateNodeHandler{
		store:     store,
		resolver:  resolver,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle executes the update node command
func (h *UpdateNodeHandler) Handle(ctx context.Context, cmd commands.UpdateNodeCommand) (*services.NodeResult, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.ID)
	if err != nil {
		return nil, err
	}

	fields, err := valueobjects.NewNodeFieldsWithConfig(cmd.Name, cmd.Type, cmd.Description, h.cfg)
	if err != nil {
		return nil, err
	}

	node, err := h.store.FindByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	node.UpdateFields(fields)

	if cmd.Children != nil {
		children, err := valueobjects.NodeIDsFromStrings(cmd.Children)
		if err != nil {
			return nil, err
		}
		if err := services.EnsureNodesExist(ctx, h.store, children); err != nil {
			return nil, err
		}
		if err := h.validator.ValidateChildLinks(ctx, nodeID, children, h.store); err != nil {
			return nil, err
		}
		if err := node.ReplaceChildrenWithConfig(children, h.cfg); err != nil {
			return nil, err
		}
	}

	if err := h.store.Update(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	h.logger.Info("Node updated",
		zap.String("nodeID", nodeID.String()),
		zap.Bool("childrenReplaced", cmd.Children != nil),
	)

	return h.resolver.ResolveOne(ctx, node)
}

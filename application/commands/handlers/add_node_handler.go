package handlers

import (
	"context"
	"fmt"

	"nodegraph/application/commands"
	"nodegraph/application/ports"
	"nodegraph/application/services"
	"nodegraph/domain/config"
	"nodegraph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// AddNodeHandler handles node creation commands
type AddNodeHandler struct {
	store    ports.NodeStore
	resolver *services.NodeResolver
	cfg      *config.DomainConfig
	logger   *zap.Logger
}

// NewAddNodeHandler creates a new add node handler
func NewAddNodeHandler(
	store ports.NodeStore,
	resolver *services.NodeResolver,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *AddNodeHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &AddNodeHandler{
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handle executes the add node command
func (h *AddNodeHandler) Handle(ctx context.Context, cmd commands.AddNodeCommand) (*services.NodeResult, error) {
	fields, err := valueobjects.NewNodeFieldsWithConfig(cmd.Name, cmd.Type, cmd.Description, h.cfg)
	if err != nil {
		return nil, err
	}

	children, err := valueobjects.NodeIDsFromStrings(cmd.Children)
	if err != nil {
		return nil, err
	}
	if len(children) > h.cfg.MaxChildrenPerNode {
		return nil, tooManyChildren(h.cfg)
	}
	if err := services.EnsureNodesExist(ctx, h.store, children); err != nil {
		return nil, err
	}

	node, err := h.store.Create(ctx, fields, children)
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}

	h.logger.Info("Node created",
		zap.String("nodeID", node.ID().String()),
		zap.String("name", node.Name()),
		zap.Int("children", node.ChildCount()),
	)

	return h.resolver.ResolveOne(ctx, node)
}

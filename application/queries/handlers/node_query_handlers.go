package handlers

import (
	"context"
	"fmt"

	"nodegraph/application/ports"
	"nodegraph/application/queries"
	"nodegraph/application/services"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// GetNodeHandler handles single node lookups
type GetNodeHandler struct {
	store    ports.NodeStore
	resolver *services.NodeResolver
	logger   *zap.Logger
}

// NewGetNodeHandler creates a new get node handler
func NewGetNodeHandler(store ports.NodeStore, resolver *services.NodeResolver, logger *zap.Logger) *GetNodeHandler {
	return &GetNodeHandler{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// Handle executes the get node query
func (h *GetNodeHandler) Handle(ctx context.Context, query queries.GetNodeByIDQuery) (*services.NodeResult, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(query.ID)
	if err != nil {
		return nil, err
	}

	node, err := h.store.FindByID(ctx, nodeID)
	if err != nil {
		h.logger.Debug("Node lookup failed", zap.String("nodeID", query.ID), zap.Error(err))
		return nil, err
	}

	return h.resolver.ResolveOne(ctx, node)
}

// FindNodesHandler handles the list, by-type and by-name queries
type FindNodesHandler struct {
	store    ports.NodeStore
	resolver *services.NodeResolver
	logger   *zap.Logger
}

// NewFindNodesHandler creates a new find nodes handler
func NewFindNodesHandler(store ports.NodeStore, resolver *services.NodeResolver, logger *zap.Logger) *FindNodesHandler {
	return &FindNodesHandler{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// HandleByType returns every node with the given type
func (h *FindNodesHandler) HandleByType(ctx context.Context, query queries.GetNodesByTypeQuery) ([]*services.NodeResult, error) {
	nodes, err := h.store.FindByType(ctx, query.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to find nodes by type: %w", err)
	}
	return h.resolve(ctx, nodes)
}

// HandleByName returns every node with the given name
func (h *FindNodesHandler) HandleByName(ctx context.Context, query queries.GetNodesByNameQuery) ([]*services.NodeResult, error) {
	nodes, err := h.store.FindByName(ctx, query.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to find nodes by name: %w", err)
	}
	return h.resolve(ctx, nodes)
}

// HandleList returns every node
func (h *FindNodesHandler) HandleList(ctx context.Context, query queries.ListNodesQuery) ([]*services.NodeResult, error) {
	nodes, err := h.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return h.resolve(ctx, nodes)
}

func (h *FindNodesHandler) resolve(ctx context.Context, nodes []*entities.Node) ([]*services.NodeResult, error) {
	results, err := h.resolver.Resolve(ctx, nodes)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("Nodes found", zap.Int("count", len(results)))
	return results, nil
}

package handlers

import (
	"context"
	"net/http"

	"nodegraph/application/commands"
	"nodegraph/application/commands/bus"
	"nodegraph/application/queries"
	querybus "nodegraph/application/queries/bus"
	"nodegraph/application/services"
	"nodegraph/pkg/common"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// CommandSender dispatches commands
type CommandSender interface {
	Send(ctx context.Context, cmd bus.Command) (interface{}, error)
}

// QueryAsker dispatches queries
type QueryAsker interface {
	Ask(ctx context.Context, query querybus.Query) (interface{}, error)
}

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	commandBus   CommandSender
	queryBus     QueryAsker
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	commandBus CommandSender,
	queryBus QueryAsker,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// NodeRequest is the body of POST /nodes and PUT /nodes/{nodeID}.
// Omitting children on update keeps the stored list.
type NodeRequest struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Children    []string `json:"children,omitempty"`
}

// AddChildrenRequest is the body of POST /nodes/{nodeID}/children
type AddChildrenRequest struct {
	ChildrenIDs []string `json:"childrenIds"`
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	query := queries.GetNodeByIDQuery{ID: chi.URLParam(r, "nodeID")}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ListNodes handles GET /nodes with optional ?type= or ?name= filters
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var query querybus.Query = queries.ListNodesQuery{}
	switch {
	case params.Has("type") && params.Has("name"):
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("filter by type or by name, not both").
			WithCode("CONFLICTING_FILTERS"))
		return
	case params.Has("type"):
		query = queries.GetNodesByTypeQuery{Type: params.Get("type")}
	case params.Has("name"):
		query = queries.GetNodesByNameQuery{Name: params.Get("name")}
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	nodes, _ := result.([]*services.NodeResult)
	common.RespondList(w, r, nodes, len(nodes))
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.AddNodeCommand{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Children:    req.Children,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if node, ok := result.(*services.NodeResult); ok {
		h.logger.Info("Node created", zap.String("nodeID", node.ID))
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

// UpdateNode handles PUT /nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.commandBus.Send(r.Context(), commands.UpdateNodeCommand{
		ID:          chi.URLParam(r, "nodeID"),
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Children:    req.Children,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// AddChildren handles POST /nodes/{nodeID}/children
func (h *NodeHandler) AddChildren(w http.ResponseWriter, r *http.Request) {
	var req AddChildrenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ChildrenIDs == nil {
		req.ChildrenIDs = []string{}
	}

	result, err := h.commandBus.Send(r.Context(), commands.AddChildrenCommand{
		NodeID:      chi.URLParam(r, "nodeID"),
		ChildrenIDs: req.ChildrenIDs,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

func (h *NodeHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(r, v, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()).
			WithCode("INVALID_JSON"))
		return false
	}
	return true
}

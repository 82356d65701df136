// Package graphql exposes the node API as a GraphQL schema. Every resolver
// dispatches through the command or query bus.
package graphql

import (
	"context"
	"fmt"

	"nodegraph/application/commands/bus"
	querybus "nodegraph/application/queries/bus"
	"nodegraph/application/services"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/graphql-go/graphql"
)

// CommandSender dispatches commands
type CommandSender interface {
	Send(ctx context.Context, cmd bus.Command) (interface{}, error)
}

// QueryAsker dispatches queries
type QueryAsker interface {
	Ask(ctx context.Context, query querybus.Query) (interface{}, error)
}

// resolverError carries an AppError's type, code and details into the
// "extensions" member of a GraphQL error
type resolverError struct {
	message    string
	extensions map[string]interface{}
}

func (e *resolverError) Error() string {
	return e.message
}

// Extensions implements gqlerrors.ExtendedError
func (e *resolverError) Extensions() map[string]interface{} {
	return e.extensions
}

func toResolverError(err error) error {
	extensions := map[string]interface{}{"type": string(pkgerrors.ErrorTypeInternal)}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		extensions["type"] = string(appErr.Type)
		if appErr.Code != "" {
			extensions["code"] = appErr.Code
		}
		if len(appErr.Details) > 0 {
			extensions["details"] = appErr.Details
		}
	}
	return &resolverError{message: pkgerrors.PublicMessage(err), extensions: extensions}
}

func nodeSource(p graphql.ResolveParams) (*services.NodeResult, error) {
	node, ok := p.Source.(*services.NodeResult)
	if !ok {
		return nil, fmt.Errorf("unexpected node source %T", p.Source)
	}
	return node, nil
}

func stringField(get func(*services.NodeResult) string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		node, err := nodeSource(p)
		if err != nil {
			return nil, err
		}
		return get(node), nil
	}
}

func newNodeType() *graphql.Object {
	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Node",
		Description: "A named, typed node with references to its children",
		Fields: graphql.Fields{
			"_id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: stringField(func(n *services.NodeResult) string { return n.ID }),
			},
			"id": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.ID),
				Resolve: stringField(func(n *services.NodeResult) string { return n.ID }),
			},
			"name": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: stringField(func(n *services.NodeResult) string { return n.Name }),
			},
			"type": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: stringField(func(n *services.NodeResult) string { return n.Type }),
			},
			"description": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.String),
				Resolve: stringField(func(n *services.NodeResult) string { return n.Description }),
			},
			"childIds": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
				Description: "Ids of the child references, including dangling ones",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					node, err := nodeSource(p)
					if err != nil {
						return nil, err
					}
					if node.ChildIDs == nil {
						return []string{}, nil
					}
					return node.ChildIDs, nil
				},
			},
		},
	})

	// children is only resolved one level deep; on a child it is null
	nodeType.AddFieldConfig("children", &graphql.Field{
		Type:        graphql.NewList(nodeType),
		Description: "Resolved child nodes, one level deep",
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			node, err := nodeSource(p)
			if err != nil {
				return nil, err
			}
			if node.Children == nil {
				return nil, nil
			}
			return node.Children, nil
		},
	})

	return nodeType
}

func newNodeInputType() *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "NodeInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"type":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"children":    &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.ID)},
		},
	})
}

func newAddChildrenInputType() *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "AddChildrenInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"nodeId":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
			"childrenIds": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.ID))},
		},
	})
}

// NewSchema builds the node schema on top of the buses
func NewSchema(commandBus CommandSender, queryBus QueryAsker) (graphql.Schema, error) {
	r := &resolvers{commands: commandBus, queries: queryBus}
	nodeType := newNodeType()
	nodeInputType := newNodeInputType()

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getNodeById": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.getNodeByID,
			},
			"getNodesByType": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Args: graphql.FieldConfigArgument{
					"type": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.getNodesByType,
			},
			"getNodesByName": &graphql.Field{
				Type: graphql.NewList(nodeType),
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.getNodesByName,
			},
			"getNodes": &graphql.Field{
				Type:    graphql.NewList(nodeType),
				Resolve: r.getNodes,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addNode": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(nodeInputType)},
				},
				Resolve: r.addNode,
			},
			"updateNode": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(nodeInputType)},
				},
				Resolve: r.updateNode,
			},
			"addChildrenToNode": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(newAddChildrenInputType())},
				},
				Resolve: r.addChildrenToNode,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

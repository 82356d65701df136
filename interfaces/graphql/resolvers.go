package graphql

import (
	"fmt"

	"nodegraph/application/commands"
	"nodegraph/application/commands/bus"
	"nodegraph/application/queries"
	"nodegraph/application/services"

	"github.com/graphql-go/graphql"
)

type resolvers struct {
	commands CommandSender
	queries  QueryAsker
}

func (r *resolvers) getNodeByID(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	result, err := r.queries.Ask(p.Context, queries.GetNodeByIDQuery{ID: id})
	if err != nil {
		return nil, toResolverError(err)
	}
	return result, nil
}

func (r *resolvers) getNodesByType(p graphql.ResolveParams) (interface{}, error) {
	nodeType, _ := p.Args["type"].(string)
	result, err := r.queries.Ask(p.Context, queries.GetNodesByTypeQuery{Type: nodeType})
	if err != nil {
		return nil, toResolverError(err)
	}
	return result, nil
}

func (r *resolvers) getNodesByName(p graphql.ResolveParams) (interface{}, error) {
	name, _ := p.Args["name"].(string)
	result, err := r.queries.Ask(p.Context, queries.GetNodesByNameQuery{Name: name})
	if err != nil {
		return nil, toResolverError(err)
	}
	return result, nil
}

func (r *resolvers) getNodes(p graphql.ResolveParams) (interface{}, error) {
	result, err := r.queries.Ask(p.Context, queries.ListNodesQuery{})
	if err != nil {
		return nil, toResolverError(err)
	}
	return result, nil
}

func (r *resolvers) addNode(p graphql.ResolveParams) (interface{}, error) {
	input, _ := p.Args["input"].(map[string]interface{})
	cmd := commands.AddNodeCommand{
		Name:        stringArg(input, "name"),
		Type:        stringArg(input, "type"),
		Description: stringArg(input, "description"),
		Children:    idListArg(input, "children"),
	}
	return r.send(p, cmd)
}

func (r *resolvers) updateNode(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	input, _ := p.Args["input"].(map[string]interface{})
	cmd := commands.UpdateNodeCommand{
		ID:          id,
		Name:        stringArg(input, "name"),
		Type:        stringArg(input, "type"),
		Description: stringArg(input, "description"),
		Children:    idListArg(input, "children"),
	}
	return r.send(p, cmd)
}

func (r *resolvers) addChildrenToNode(p graphql.ResolveParams) (interface{}, error) {
	input, _ := p.Args["input"].(map[string]interface{})
	cmd := commands.AddChildrenCommand{
		NodeID:      stringArg(input, "nodeId"),
		ChildrenIDs: idListArg(input, "childrenIds"),
	}
	if cmd.ChildrenIDs == nil {
		cmd.ChildrenIDs = []string{}
	}
	return r.send(p, cmd)
}

func (r *resolvers) send(p graphql.ResolveParams, cmd bus.Command) (interface{}, error) {
	result, err := r.commands.Send(p.Context, cmd)
	if err != nil {
		return nil, toResolverError(err)
	}
	if node, ok := result.(*services.NodeResult); ok {
		return node, nil
	}
	return nil, fmt.Errorf("unexpected command result %T", result)
}

func stringArg(input map[string]interface{}, key string) string {
	value, _ := input[key].(string)
	return value
}

// idListArg returns nil when key is absent or null, so "not given" stays
// distinguishable from an empty list. Null entries become empty strings and
// fail id validation downstream.
func idListArg(input map[string]interface{}, key string) []string {
	raw, ok := input[key].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]string, len(raw))
	for i, v := range raw {
		ids[i], _ = v.(string)
	}
	return ids
}

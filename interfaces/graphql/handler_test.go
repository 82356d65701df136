package graphql_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"nodegraph/application/importer"
	"nodegraph/infrastructure/config"
	"nodegraph/infrastructure/di"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions"`
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

type node struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	ChildIDs    []string `json:"childIds"`
	Children    []*node  `json:"children"`
}

const nodeFields = `id name type description childIds children { id name childIds children { id } }`

func newContainer(t *testing.T) *di.Container {
	t.Helper()
	cfg := &config.Config{
		Environment:         "test",
		LogLevel:            "error",
		Store:               config.StoreConfig{Kind: config.StoreMemory},
		EnableMetrics:       true,
		BreakerFailureRatio: 0.6,
	}
	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return container
}

func post(t *testing.T, h http.Handler, query string, variables map[string]interface{}) gqlResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeField(t *testing.T, resp gqlResponse, field string, out interface{}) {
	t.Helper()
	require.Empty(t, resp.Errors)
	raw, ok := resp.Data[field]
	require.True(t, ok, "missing field %s", field)
	require.NoError(t, json.Unmarshal(raw, out))
}

func addNode(t *testing.T, h http.Handler, name, nodeType string, children ...string) *node {
	t.Helper()
	input := map[string]interface{}{"name": name, "type": nodeType, "description": name + " description"}
	if len(children) > 0 {
		input["children"] = children
	}
	resp := post(t, h, `mutation($input: NodeInput!) { addNode(input: $input) { `+nodeFields+` } }`,
		map[string]interface{}{"input": input})

	var created node
	decodeField(t, resp, "addNode", &created)
	return &created
}

func TestGraphQL_AddNodeAndGetByID(t *testing.T) {
	h := newContainer(t).HTTPHandler

	leaf := addNode(t, h, "leaf", "item")
	parent := addNode(t, h, "parent", "group", leaf.ID)

	assert.Equal(t, []string{leaf.ID}, parent.ChildIDs)
	require.Len(t, parent.Children, 1)
	assert.Equal(t, "leaf", parent.Children[0].Name)

	resp := post(t, h, `query($id: ID!) { getNodeById(id: $id) { `+nodeFields+` } }`,
		map[string]interface{}{"id": parent.ID})

	var got node
	decodeField(t, resp, "getNodeById", &got)
	assert.Equal(t, parent.ID, got.ID)
	assert.Equal(t, "group", got.Type)
	assert.Equal(t, "parent description", got.Description)
	require.Len(t, got.Children, 1)
	assert.Equal(t, leaf.ID, got.Children[0].ID)
	assert.Empty(t, got.Children[0].ChildIDs)
	assert.Nil(t, got.Children[0].Children, "children resolve one level deep")
}

func TestGraphQL_GetNodeByID_Unknown(t *testing.T) {
	h := newContainer(t).HTTPHandler

	resp := post(t, h, `query { getNodeById(id: "8f1c2a6e-0d4b-4b7a-9c3e-5a1f2e3d4c5b") { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["type"])
}

func TestGraphQL_AddNode_RequiresFields(t *testing.T) {
	h := newContainer(t).HTTPHandler

	resp := post(t, h, `mutation { addNode(input: {name: "A", type: "t", description: ""}) { id } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "name, type, and description are required", resp.Errors[0].Message)
	assert.Equal(t, "VALIDATION", resp.Errors[0].Extensions["type"])
	assert.Equal(t, "REQUIRED_FIELDS", resp.Errors[0].Extensions["code"])
}

func TestGraphQL_AddNode_UnknownChild(t *testing.T) {
	h := newContainer(t).HTTPHandler

	resp := post(t, h, `mutation($input: NodeInput!) { addNode(input: $input) { id } }`,
		map[string]interface{}{"input": map[string]interface{}{
			"name": "A", "type": "t", "description": "d",
			"children": []string{"8f1c2a6e-0d4b-4b7a-9c3e-5a1f2e3d4c5b"},
		}})

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["type"])
	assert.Equal(t, "CHILD_NOT_FOUND", resp.Errors[0].Extensions["code"])

	list := post(t, h, `{ getNodes { id } }`, nil)
	var nodes []node
	decodeField(t, list, "getNodes", &nodes)
	assert.Empty(t, nodes)
}

func TestGraphQL_UpdateNode(t *testing.T) {
	h := newContainer(t).HTTPHandler
	child := addNode(t, h, "child", "item")
	n := addNode(t, h, "before", "group", child.ID)

	t.Run("keeps children when omitted", func(t *testing.T) {
		resp := post(t, h, `mutation($id: ID!) { updateNode(id: $id, input: {name: "after", type: "g2", description: "new"}) { `+nodeFields+` } }`,
			map[string]interface{}{"id": n.ID})

		var updated node
		decodeField(t, resp, "updateNode", &updated)
		assert.Equal(t, n.ID, updated.ID)
		assert.Equal(t, "after", updated.Name)
		assert.Equal(t, "g2", updated.Type)
		assert.Equal(t, []string{child.ID}, updated.ChildIDs)
	})

	t.Run("clears children with an empty list", func(t *testing.T) {
		resp := post(t, h, `mutation($id: ID!) { updateNode(id: $id, input: {name: "after", type: "g2", description: "new", children: []}) { childIds } }`,
			map[string]interface{}{"id": n.ID})

		var updated node
		decodeField(t, resp, "updateNode", &updated)
		assert.Empty(t, updated.ChildIDs)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := post(t, h, `mutation { updateNode(id: "8f1c2a6e-0d4b-4b7a-9c3e-5a1f2e3d4c5b", input: {name: "x", type: "y", description: "z"}) { id } }`, nil)

		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["type"])
	})
}

func TestGraphQL_AddChildrenToNode(t *testing.T) {
	h := newContainer(t).HTTPHandler
	parent := addNode(t, h, "parent", "group")
	a := addNode(t, h, "a", "item")
	b := addNode(t, h, "b", "item")

	const mutation = `mutation($input: AddChildrenInput!) { addChildrenToNode(input: $input) { ` + nodeFields + ` } }`

	resp := post(t, h, mutation, map[string]interface{}{"input": map[string]interface{}{
		"nodeId": parent.ID, "childrenIds": []string{a.ID, b.ID},
	}})
	var updated node
	decodeField(t, resp, "addChildrenToNode", &updated)
	assert.Equal(t, []string{a.ID, b.ID}, updated.ChildIDs)
	require.Len(t, updated.Children, 2)
	assert.Equal(t, "a", updated.Children[0].Name)
	assert.Equal(t, "b", updated.Children[1].Name)

	t.Run("unknown child leaves children unchanged", func(t *testing.T) {
		resp := post(t, h, mutation, map[string]interface{}{"input": map[string]interface{}{
			"nodeId": parent.ID, "childrenIds": []string{a.ID, "8f1c2a6e-0d4b-4b7a-9c3e-5a1f2e3d4c5b"},
		}})
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["type"])

		got := post(t, h, `query($id: ID!) { getNodeById(id: $id) { childIds } }`, map[string]interface{}{"id": parent.ID})
		var n node
		decodeField(t, got, "getNodeById", &n)
		assert.Equal(t, []string{a.ID, b.ID}, n.ChildIDs)
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		resp := post(t, h, mutation, map[string]interface{}{"input": map[string]interface{}{
			"nodeId": a.ID, "childrenIds": []string{parent.ID},
		}})
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "VALIDATION", resp.Errors[0].Extensions["type"])
		assert.Equal(t, "CYCLIC_REFERENCE", resp.Errors[0].Extensions["code"])
	})

	t.Run("self reference is rejected", func(t *testing.T) {
		resp := post(t, h, mutation, map[string]interface{}{"input": map[string]interface{}{
			"nodeId": b.ID, "childrenIds": []string{b.ID},
		}})
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "VALIDATION", resp.Errors[0].Extensions["type"])
	})
}

func TestGraphQL_FindByNameAndType(t *testing.T) {
	h := newContainer(t).HTTPHandler
	addNode(t, h, "alpha", "letter")
	addNode(t, h, "beta", "letter")
	addNode(t, h, "one", "digit")

	var byType []node
	decodeField(t, post(t, h, `{ getNodesByType(type: "letter") { name } }`, nil), "getNodesByType", &byType)
	require.Len(t, byType, 2)
	assert.Equal(t, "alpha", byType[0].Name)
	assert.Equal(t, "beta", byType[1].Name)

	var byName []node
	decodeField(t, post(t, h, `{ getNodesByName(name: "one") { type } }`, nil), "getNodesByName", &byName)
	require.Len(t, byName, 1)
	assert.Equal(t, "digit", byName[0].Type)

	var none []node
	decodeField(t, post(t, h, `{ getNodesByName(name: "missing") { id } }`, nil), "getNodesByName", &none)
	assert.Empty(t, none)

	var all []node
	decodeField(t, post(t, h, `{ getNodes { id } }`, nil), "getNodes", &all)
	assert.Len(t, all, 3)
}

func TestGraphQL_ImportedTreeIsQueryable(t *testing.T) {
	container := newContainer(t)
	descriptors := []importer.Descriptor{{
		Name: "A", Type: "root", Description: "top",
		Children: []importer.Descriptor{{Name: "B", Type: "leaf", Description: "nested"}},
	}}

	_, err := container.Importer.Import(context.Background(), descriptors, importer.Options{})
	require.NoError(t, err)

	var found []node
	decodeField(t, post(t, container.HTTPHandler, `{ getNodesByName(name: "A") { `+nodeFields+` } }`, nil), "getNodesByName", &found)
	require.Len(t, found, 1)
	require.Len(t, found[0].Children, 1)
	assert.Equal(t, "B", found[0].Children[0].Name)
	assert.Equal(t, found[0].ChildIDs, []string{found[0].Children[0].ID})
}

func TestGraphQL_GetRequest(t *testing.T) {
	h := newContainer(t).HTTPHandler
	addNode(t, h, "alpha", "letter")

	q := url.Values{}
	q.Set("query", `query($t: String!) { getNodesByType(type: $t) { name } }`)
	q.Set("variables", `{"t":"letter"}`)
	req := httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	var nodes []node
	decodeField(t, resp, "getNodesByType", &nodes)
	require.Len(t, nodes, 1)
	assert.Equal(t, "alpha", nodes[0].Name)
}

func TestGraphQL_GetRequestRejectsMutations(t *testing.T) {
	h := newContainer(t).HTTPHandler

	get := func(query, operationName string) *httptest.ResponseRecorder {
		q := url.Values{}
		q.Set("query", query)
		if operationName != "" {
			q.Set("operationName", operationName)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
		return rec
	}

	rec := get(`mutation { addNode(input: {name: "x", type: "t", description: "d"}) { id } }`, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "MUTATION_NOT_ALLOWED")
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	doc := `query List { getNodes { id } } mutation Add { addNode(input: {name: "x", type: "t", description: "d"}) { id } }`
	assert.Equal(t, http.StatusMethodNotAllowed, get(doc, "Add").Code)
	assert.Equal(t, http.StatusOK, get(doc, "List").Code)

	var nodes []node
	decodeField(t, post(t, h, `{ getNodes { id } }`, nil), "getNodes", &nodes)
	assert.Empty(t, nodes)
}

func TestGraphQL_BadRequests(t *testing.T) {
	h := newContainer(t).HTTPHandler

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"missing query", http.MethodPost, "/graphql", `{"query":""}`, http.StatusBadRequest, "MISSING_QUERY"},
		{"malformed body", http.MethodPost, "/graphql", `{"query":`, http.StatusBadRequest, "INVALID_JSON"},
		{"malformed variables", http.MethodGet, "/graphql?query=%7BgetNodes%7Bid%7D%7D&variables=oops", "", http.StatusBadRequest, "INVALID_VARIABLES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

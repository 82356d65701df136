package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nodegraph/infrastructure/config"
	"nodegraph/infrastructure/di"
	"nodegraph/interfaces/http/rest"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const unknownID = "8f1c2a6e-0d4b-4b7a-9c3e-5a1f2e3d4c5b"

type nodeBody struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	ChildIDs    []string    `json:"childIds"`
	Children    []*nodeBody `json:"children"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Count *int `json:"count"`
	} `json:"meta"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Environment:         "test",
		LogLevel:            "error",
		Store:               config.StoreConfig{Kind: config.StoreMemory},
		EnableMetrics:       true,
		EnableCORS:          true,
		BreakerFailureRatio: 0.6,
	}
	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return container.HTTPHandler
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) *envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
	return &env
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func createNode(t *testing.T, h http.Handler, name, nodeType string, children ...string) nodeBody {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/nodes", map[string]interface{}{
		"name": name, "type": nodeType, "description": name + " description", "children": children,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var n nodeBody
	decodeData(t, rec, &n)
	return n
}

func TestRouter_CreateAndGetNode(t *testing.T) {
	h := newHandler(t)
	leaf := createNode(t, h, "leaf", "item")
	parent := createNode(t, h, "parent", "group", leaf.ID)

	rec := do(t, h, http.MethodGet, "/api/v1/nodes/"+parent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got nodeBody
	decodeData(t, rec, &got)
	assert.Equal(t, "parent", got.Name)
	assert.Equal(t, []string{leaf.ID}, got.ChildIDs)
	require.Len(t, got.Children, 1)
	assert.Equal(t, "leaf", got.Children[0].Name)
}

func TestRouter_GetNode_Errors(t *testing.T) {
	h := newHandler(t)

	rec := do(t, h, http.MethodGet, "/api/v1/nodes/"+unknownID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Type)

	rec = do(t, h, http.MethodGet, "/api/v1/nodes/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, rec).Type)
}

func TestRouter_CreateNode_Validation(t *testing.T) {
	h := newHandler(t)

	rec := do(t, h, http.MethodPost, "/api/v1/nodes", map[string]string{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "name, type, and description are required", body.Message)
	assert.Equal(t, "REQUIRED_FIELDS", body.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/nodes", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/v1/nodes", `{"name":"A","type":"t","description":"d","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
}

func TestRouter_ListNodes(t *testing.T) {
	h := newHandler(t)
	createNode(t, h, "alpha", "letter")
	createNode(t, h, "beta", "letter")
	createNode(t, h, "one", "digit")

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all", "/api/v1/nodes", []string{"alpha", "beta", "one"}},
		{"by type", "/api/v1/nodes?type=letter", []string{"alpha", "beta"}},
		{"by name", "/api/v1/nodes?name=one", []string{"one"}},
		{"no match", "/api/v1/nodes?name=zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var nodes []nodeBody
			env := decodeData(t, rec, &nodes)
			names := make([]string, 0, len(nodes))
			for _, n := range nodes {
				names = append(names, n.Name)
			}
			assert.Equal(t, tt.want, names)
			require.NotNil(t, env.Meta)
			require.NotNil(t, env.Meta.Count)
			assert.Equal(t, len(tt.want), *env.Meta.Count)
		})
	}

	t.Run("conflicting filters", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/nodes?type=letter&name=alpha", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "CONFLICTING_FILTERS", decodeError(t, rec).Code)
	})
}

func TestRouter_UpdateNode(t *testing.T) {
	h := newHandler(t)
	child := createNode(t, h, "child", "item")
	n := createNode(t, h, "before", "group", child.ID)

	rec := do(t, h, http.MethodPut, "/api/v1/nodes/"+n.ID, map[string]string{
		"name": "after", "type": "group", "description": "changed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated nodeBody
	decodeData(t, rec, &updated)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, []string{child.ID}, updated.ChildIDs)

	rec = do(t, h, http.MethodPut, "/api/v1/nodes/"+unknownID, map[string]string{
		"name": "x", "type": "y", "description": "z",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AddChildren(t *testing.T) {
	h := newHandler(t)
	parent := createNode(t, h, "parent", "group")
	a := createNode(t, h, "a", "item")

	rec := do(t, h, http.MethodPost, "/api/v1/nodes/"+parent.ID+"/children", map[string][]string{
		"childrenIds": {a.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated nodeBody
	decodeData(t, rec, &updated)
	assert.Equal(t, []string{a.ID}, updated.ChildIDs)

	rec = do(t, h, http.MethodPost, "/api/v1/nodes/"+parent.ID+"/children", map[string][]string{
		"childrenIds": {unknownID},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CHILD_NOT_FOUND", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/v1/nodes/"+a.ID+"/children", map[string][]string{
		"childrenIds": {parent.ID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CYCLIC_REFERENCE", decodeError(t, rec).Code)
}

func TestRouter_Operational(t *testing.T) {
	h := newHandler(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")

	createNode(t, h, "counted", "item")
	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nodegraph_")

	rec = do(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/v1/nodes", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost))
}

type downStore struct{}

func (downStore) Ping(ctx context.Context) error {
	return pkgerrors.NewStoreError("ping", errors.New("connection refused"))
}

func TestRouter_ReadyReportsStoreFailure(t *testing.T) {
	logger := zap.NewNop()
	router := rest.NewRouter(nil, nil, http.NotFoundHandler(), downStore{},
		pkgerrors.NewErrorHandler(logger, false), rest.Options{}, logger)
	h := router.Setup()

	rec := do(t, h, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

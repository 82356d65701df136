package graphql

import (
	"encoding/json"
	"net/http"

	pkgerrors "nodegraph/pkg/errors"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"go.uber.org/zap"
)

// maxRequestBytes bounds the size of a GraphQL request body
const maxRequestBytes = 1 << 20

// Request is a GraphQL request in its POST body form
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler serves GraphQL over HTTP
type Handler struct {
	schema       graphql.Schema
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewHandler creates a new GraphQL HTTP handler
func NewHandler(schema graphql.Schema, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *Handler {
	return &Handler{
		schema:       schema,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ServeHTTP accepts POST with a JSON body and GET with query parameters
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	if result.HasErrors() {
		for _, e := range result.Errors {
			h.logger.Debug("GraphQL error",
				zap.String("message", e.Message),
				zap.String("operation", req.OperationName),
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("Failed to encode GraphQL response", zap.Error(err))
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*Request, error) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req := &Request{
			Query:         q.Get("query"),
			OperationName: q.Get("operationName"),
		}
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				return nil, pkgerrors.NewValidationError("variables must be a JSON object").WithCode("INVALID_VARIABLES")
			}
		}
		if _, err := validateRequest(req); err != nil {
			return nil, err
		}
		if selectsMutation(req) {
			w.Header().Set("Allow", http.MethodPost)
			return nil, &pkgerrors.AppError{
				Type:       pkgerrors.ErrorTypeValidation,
				Message:    "mutations must be sent with POST",
				Code:       "MUTATION_NOT_ALLOWED",
				HTTPStatus: http.StatusMethodNotAllowed,
			}
		}
		return req, nil

	case http.MethodPost:
		var req Request
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := decoder.Decode(&req); err != nil {
			return nil, pkgerrors.NewValidationError("invalid request body").
				WithCode("INVALID_JSON").
				WithCause(err)
		}
		return validateRequest(&req)

	default:
		return nil, &pkgerrors.AppError{
			Type:       pkgerrors.ErrorTypeValidation,
			Message:    "method not allowed",
			Code:       "METHOD_NOT_ALLOWED",
			HTTPStatus: http.StatusMethodNotAllowed,
		}
	}
}

func validateRequest(req *Request) (*Request, error) {
	if req.Query == "" {
		return nil, pkgerrors.NewValidationError("query is required").WithCode("MISSING_QUERY")
	}
	return req, nil
}

// selectsMutation reports whether the operation a request would run is a
// mutation. Unparseable documents are left for graphql.Do to report.
func selectsMutation(req *Request) bool {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return false
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok || op.Operation != ast.OperationTypeMutation {
			continue
		}
		if req.OperationName == "" || (op.Name != nil && op.Name.Value == req.OperationName) {
			return true
		}
	}
	return false
}

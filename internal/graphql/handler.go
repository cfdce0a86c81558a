package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gql "github.com/graphql-go/graphql"

	"github.com/starford/mockbox/internal/api"
	"github.com/starford/mockbox/internal/models"
)

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string                     `json:"query"`
	Variables     map[string]json.RawMessage `json:"variables"`
	OperationName string                     `json:"operationName"`
}

// Handler serves POST and GET /graphql.
type Handler struct {
	schema gql.Schema
}

// NewHandler creates a Handler for schema.
func NewHandler(schema gql.Schema) *Handler {
	return &Handler{schema: schema}
}

// ServeHTTP executes a query from a JSON body (POST) or the query string
// (GET). A GET without a query serves the GraphiQL explorer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		if q.Get("query") == "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, graphiQLPage)
			return
		}
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				writeError(w, http.StatusBadRequest, "variables must be a JSON object")
				return
			}
		}
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, api.MaxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	vars, err := decodeVariables(req.Variables)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := gql.Do(gql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: vars,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		slog.Debug("graphql errors", slog.Any("errors", result.Errors))
	}
	api.WriteJSON(w, http.StatusOK, result)
}

// decodeVariables keeps the key order of object-valued variables so that
// entity inputs passed by variable store keys as sent.
func decodeVariables(raw map[string]json.RawMessage) (map[string]any, error) {
	vars := make(map[string]any, len(raw))
	for name, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			e, err := models.DecodeEntity(trimmed)
			if err != nil {
				return nil, fmt.Errorf("variable %s: %w", name, err)
			}
			vars[name] = e
			continue
		}
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		vars[name] = v
	}
	return vars, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	api.WriteJSON(w, status, map[string]any{
		"errors": []map[string]string{{"message": msg}},
	})
}

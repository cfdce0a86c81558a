package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/starford/mockbox/internal/api"
	"github.com/starford/mockbox/internal/health"
	"github.com/starford/mockbox/internal/testutil"
)

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type entityResult struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
	Data      json.RawMessage `json:"data"`
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := testutil.TestService(t)
	schema, err := NewSchema(svc, health.NewChecker(nil))
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return NewHandler(schema)
}

func post(t *testing.T, h http.Handler, query string, vars map[string]any) gqlResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"query": query, "variables": vars})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp gqlResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestCreateEntityLiteral(t *testing.T) {
	h := testHandler(t)

	resp := post(t, h, `mutation {
		createEntity(type: "products", input: {name: "Laptop", price: 999.99}) {
			id createdAt updatedAt data
		}
	}`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	var e entityResult
	if err := json.Unmarshal(resp.Data["createEntity"], &e); err != nil {
		t.Fatal(err)
	}
	if e.ID == "" || e.CreatedAt == "" || e.UpdatedAt == "" {
		t.Errorf("reserved fields not populated: %+v", e)
	}
	if got := string(e.Data); got != `{"name":"Laptop","price":999.99}` {
		t.Errorf("data = %s", got)
	}
}

func TestCreateEntityVariables(t *testing.T) {
	h := testHandler(t)

	body := `{"query":"mutation($in: JSON!) { createEntity(type: \"users\", input: $in) { id data } }",` +
		`"variables":{"in":{"zeta":1,"alpha":{"nested":true},"id":"forged"}}}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp gqlResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	var e entityResult
	_ = json.Unmarshal(resp.Data["createEntity"], &e)
	if e.ID == "forged" {
		t.Error("forged id accepted")
	}
	if got := string(e.Data); got != `{"zeta":1,"alpha":{"nested":true}}` {
		t.Errorf("data = %s", got)
	}
}

func TestQueriesAndMutations(t *testing.T) {
	h := testHandler(t)

	resp := post(t, h, `mutation { createEntity(type: "users", input: {name: "John", email: "j@x.com"}) { id } }`, nil)
	var created entityResult
	_ = json.Unmarshal(resp.Data["createEntity"], &created)

	resp = post(t, h, `query($id: ID!) {
		entity(type: "users", id: $id) { id data }
		entities(type: "users") { id }
		entityTypes
	}`, map[string]any{"id": created.ID})
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	var got entityResult
	_ = json.Unmarshal(resp.Data["entity"], &got)
	if got.ID != created.ID || string(got.Data) != `{"name":"John","email":"j@x.com"}` {
		t.Errorf("entity = %+v data=%s", got, got.Data)
	}
	if string(resp.Data["entityTypes"]) != `["users"]` {
		t.Errorf("entityTypes = %s", resp.Data["entityTypes"])
	}
	var list []entityResult
	_ = json.Unmarshal(resp.Data["entities"], &list)
	if len(list) != 1 {
		t.Errorf("entities len = %d", len(list))
	}

	resp = post(t, h, `mutation($id: ID!) {
		updateEntity(type: "users", id: $id, input: {name: "Jane"}) { data }
	}`, map[string]any{"id": created.ID})
	var updated entityResult
	_ = json.Unmarshal(resp.Data["updateEntity"], &updated)
	if string(updated.Data) != `{"name":"Jane","email":"j@x.com"}` {
		t.Errorf("update data = %s", updated.Data)
	}

	resp = post(t, h, `mutation($id: ID!) { first: deleteEntity(type: "users", id: $id) second: deleteEntity(type: "users", id: $id) }`,
		map[string]any{"id": created.ID})
	if string(resp.Data["first"]) != "true" || string(resp.Data["second"]) != "false" {
		t.Errorf("delete = %s, %s", resp.Data["first"], resp.Data["second"])
	}
}

func TestNotFoundIsNull(t *testing.T) {
	h := testHandler(t)

	resp := post(t, h, `mutation {
		updateEntity(type: "users", id: "nope", input: {a: 1}) { id }
	}`, nil)
	if len(resp.Errors) > 0 {
		t.Fatalf("errors: %v", resp.Errors)
	}
	if string(resp.Data["updateEntity"]) != "null" {
		t.Errorf("updateEntity = %s", resp.Data["updateEntity"])
	}

	resp = post(t, h, `{ entity(type: "ghosts", id: "x") { id } entities(type: "ghosts") { id } }`, nil)
	if string(resp.Data["entity"]) != "null" {
		t.Errorf("entity = %s", resp.Data["entity"])
	}
	if string(resp.Data["entities"]) != "[]" {
		t.Errorf("entities = %s", resp.Data["entities"])
	}
}

func TestNonObjectInputIsError(t *testing.T) {
	h := testHandler(t)

	resp := post(t, h, `mutation { createEntity(type: "users", input: [1, 2]) { id } }`, nil)
	if len(resp.Errors) == 0 {
		t.Fatal("expected an error for list input")
	}
	if !strings.Contains(resp.Errors[0].Message, "JSON object") {
		t.Errorf("message = %q", resp.Errors[0].Message)
	}
}

func TestHealthQuery(t *testing.T) {
	h := testHandler(t)

	resp := post(t, h, `{ health { status version uptime timestamp } }`, nil)
	var st health.Status
	if err := json.Unmarshal(resp.Data["health"], &st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "ok" || st.Version != health.Version || st.Timestamp == "" {
		t.Errorf("health = %+v", st)
	}
}

func TestGetRequests(t *testing.T) {
	h := testHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("explorer: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("{ entityTypes }"), nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"entityTypes":[]`) {
		t.Errorf("GET query: %d %s", w.Code, w.Body.String())
	}
}

func TestMalformedBody(t *testing.T) {
	h := testHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing query: status = %d, want 400", w.Code)
	}
}

func TestOversizedBody(t *testing.T) {
	h := testHandler(t)

	query := `{"query":"` + strings.Repeat("a", api.MaxBodyBytes+1) + `"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(query)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
}

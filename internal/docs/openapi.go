// Package docs builds and serves the OpenAPI description of the REST API.
package docs

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	tagHealth = "Health"
	tagCRUD   = "Generic CRUD"
)

// ref points at a component schema. The value is kept alongside the
// pointer so the document validates without a loader pass.
func ref(comps openapi3.Schemas, name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, comps[name].Value)
}

// envelope is the {message, data} body the REST adapter answers with.
func envelope(data *openapi3.SchemaRef) *openapi3.Schema {
	s := openapi3.NewObjectSchema().WithProperty("message", openapi3.NewStringSchema())
	if data != nil {
		s.WithPropertyRef("data", data)
	}
	return s
}

func jsonResponse(desc string, s *openapi3.SchemaRef) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(desc).WithJSONSchemaRef(s)}
}

// Build returns the OpenAPI document for the given version.
func Build(version string) *openapi3.T {
	comps := schemas(version)
	errorResponse := func(desc string) *openapi3.ResponseRef {
		return jsonResponse(desc, ref(comps, "Error"))
	}

	entityParam := openapi3.NewPathParameter("entity").
		WithDescription("Entity type, e.g. users, posts, products").
		WithSchema(openapi3.NewStringSchema())
	entityParam.Example = "users"
	idParam := openapi3.NewPathParameter("id").
		WithDescription("Entity id").
		WithSchema(openapi3.NewStringSchema())

	collection := openapi3.Parameters{{Value: entityParam}}
	member := openapi3.Parameters{{Value: entityParam}, {Value: idParam}}

	payloadSchema := openapi3.NewObjectSchema().WithAnyAdditionalProperties()
	payloadSchema.Example = map[string]any{"name": "John Doe", "email": "john@example.com", "age": 30}
	payload := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchema(payloadSchema)}

	entities := openapi3.NewArraySchema()
	entities.Items = ref(comps, "Entity")
	list := openapi3.NewSchemaRef("", envelope(openapi3.NewSchemaRef("", entities)))
	entity := openapi3.NewSchemaRef("", envelope(ref(comps, "Entity")))
	crud := []string{tagCRUD}

	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "mockbox",
			Version:     version,
			Description: "A generic CRUD API for mocking any entity.",
		},
		Tags: openapi3.Tags{
			{Name: tagHealth, Description: "Liveness and status"},
			{Name: tagCRUD, Description: "Schemaless entity collections"},
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: comps},
	}

	doc.AddOperation("/health", http.MethodGet, &openapi3.Operation{
		Tags:        []string{tagHealth},
		Summary:     "Health check",
		OperationID: "getHealth",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Service is healthy", ref(comps, "HealthStatus"))),
		),
	})

	doc.AddOperation("/api/{entity}", http.MethodGet, &openapi3.Operation{
		Tags:        crud,
		Summary:     "List entities",
		Description: "Every entity of a type in insertion order. Unknown types yield an empty list.",
		OperationID: "listEntities",
		Parameters:  collection,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("List of entities", list)),
			openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Persistence failure")),
		),
	})
	doc.AddOperation("/api/{entity}", http.MethodPost, &openapi3.Operation{
		Tags:        crud,
		Summary:     "Create entity",
		Description: "id, createdAt and updatedAt are generated; the same keys in the body are ignored.",
		OperationID: "createEntity",
		Parameters:  collection,
		RequestBody: payload,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusCreated, jsonResponse("Entity created", entity)),
			openapi3.WithStatus(http.StatusBadRequest, errorResponse("Body is not a JSON object")),
			openapi3.WithStatus(http.StatusRequestEntityTooLarge, errorResponse("Body exceeds 10 MiB")),
			openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Persistence failure")),
		),
	})

	doc.AddOperation("/api/{entity}/{id}", http.MethodGet, &openapi3.Operation{
		Tags:        crud,
		Summary:     "Get entity",
		OperationID: "getEntity",
		Parameters:  member,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("The entity", entity)),
			openapi3.WithStatus(http.StatusNotFound, errorResponse("Entity not found")),
		),
	})
	doc.AddOperation("/api/{entity}/{id}", http.MethodPut, &openapi3.Operation{
		Tags:        crud,
		Summary:     "Update entity",
		Description: "Merges the body over the stored entity; absent keys are kept.",
		OperationID: "updateEntity",
		Parameters:  member,
		RequestBody: payload,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Entity updated", entity)),
			openapi3.WithStatus(http.StatusBadRequest, errorResponse("Body is not a JSON object")),
			openapi3.WithStatus(http.StatusNotFound, errorResponse("Entity not found")),
			openapi3.WithStatus(http.StatusRequestEntityTooLarge, errorResponse("Body exceeds 10 MiB")),
			openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Persistence failure")),
		),
	})
	doc.AddOperation("/api/{entity}/{id}", http.MethodDelete, &openapi3.Operation{
		Tags:        crud,
		Summary:     "Delete entity",
		OperationID: "deleteEntity",
		Parameters:  member,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Entity deleted", openapi3.NewSchemaRef("", envelope(nil)))),
			openapi3.WithStatus(http.StatusNotFound, errorResponse("Entity not found")),
			openapi3.WithStatus(http.StatusInternalServerError, errorResponse("Persistence failure")),
		),
	})

	return doc
}

func schemas(version string) openapi3.Schemas {
	id := openapi3.NewStringSchema()
	id.Example = "3f1c2a9e-8d4b-4c1e-9f7a-2b6d5e8c1a40"
	entity := openapi3.NewObjectSchema().
		WithProperty("id", id).
		WithProperty("createdAt", openapi3.NewDateTimeSchema()).
		WithProperty("updatedAt", openapi3.NewDateTimeSchema()).
		WithRequired([]string{"id", "createdAt", "updatedAt"}).
		WithAnyAdditionalProperties()

	title := openapi3.NewStringSchema()
	title.Example = "Not found"
	errSchema := openapi3.NewObjectSchema().
		WithProperty("error", title).
		WithProperty("message", openapi3.NewStringSchema()).
		WithRequired([]string{"error"})

	status := openapi3.NewStringSchema()
	status.Example = "ok"
	uptime := openapi3.NewFloat64Schema()
	uptime.Example = 3600.0
	ver := openapi3.NewStringSchema()
	ver.Example = version
	health := openapi3.NewObjectSchema().
		WithProperty("status", status).
		WithProperty("timestamp", openapi3.NewDateTimeSchema()).
		WithProperty("uptime", uptime).
		WithProperty("version", ver)

	return openapi3.Schemas{
		"Entity":       openapi3.NewSchemaRef("", entity),
		"Error":        openapi3.NewSchemaRef("", errSchema),
		"HealthStatus": openapi3.NewSchemaRef("", health),
	}
}

// Package graphql exposes the storage service over a GraphQL endpoint.
package graphql

import (
	"errors"
	"fmt"

	gql "github.com/graphql-go/graphql"

	"github.com/starford/mockbox/internal/apperr"
	"github.com/starford/mockbox/internal/entityservice"
	"github.com/starford/mockbox/internal/health"
	"github.com/starford/mockbox/internal/models"
)

// NewSchema builds the schema with resolvers bound to svc and checker.
func NewSchema(svc *entityservice.Service, checker *health.Checker) (gql.Schema, error) {
	entityType := gql.NewObject(gql.ObjectConfig{
		Name: "Entity",
		Fields: gql.Fields{
			"id":        &gql.Field{Type: gql.NewNonNull(gql.ID)},
			"createdAt": &gql.Field{Type: gql.String},
			"updatedAt": &gql.Field{Type: gql.String},
			"data":      &gql.Field{Type: JSONScalar},
		},
	})

	healthType := gql.NewObject(gql.ObjectConfig{
		Name: "HealthStatus",
		Fields: gql.Fields{
			"status":    &gql.Field{Type: gql.NewNonNull(gql.String)},
			"timestamp": &gql.Field{Type: gql.NewNonNull(gql.String)},
			"uptime":    &gql.Field{Type: gql.NewNonNull(gql.Float)},
			"version":   &gql.Field{Type: gql.NewNonNull(gql.String)},
		},
	})

	typeArg := &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)}
	idArg := &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}
	inputArg := &gql.ArgumentConfig{Type: gql.NewNonNull(JSONScalar)}

	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"entities": &gql.Field{
				Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(entityType))),
				Args: gql.FieldConfigArgument{"type": typeArg},
				Resolve: func(p gql.ResolveParams) (any, error) {
					items := svc.ListEntities(p.Context, stringArg(p, "type"))
					out := make([]any, 0, len(items))
					for _, e := range items {
						out = append(out, reshape(e))
					}
					return out, nil
				},
			},
			"entity": &gql.Field{
				Type: entityType,
				Args: gql.FieldConfigArgument{"type": typeArg, "id": idArg},
				Resolve: func(p gql.ResolveParams) (any, error) {
					e, err := svc.GetEntity(p.Context, stringArg(p, "type"), stringArg(p, "id"))
					if errors.Is(err, apperr.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return reshape(e), nil
				},
			},
			"entityTypes": &gql.Field{
				Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(gql.String))),
				Resolve: func(p gql.ResolveParams) (any, error) {
					return svc.ListEntityTypes(p.Context), nil
				},
			},
			"health": &gql.Field{
				Type: gql.NewNonNull(healthType),
				Resolve: func(gql.ResolveParams) (any, error) {
					st := checker.Status()
					return map[string]any{
						"status":    st.Status,
						"timestamp": st.Timestamp,
						"uptime":    st.Uptime,
						"version":   st.Version,
					}, nil
				},
			},
		},
	})

	mutation := gql.NewObject(gql.ObjectConfig{
		Name: "Mutation",
		Fields: gql.Fields{
			"createEntity": &gql.Field{
				Type: gql.NewNonNull(entityType),
				Args: gql.FieldConfigArgument{"type": typeArg, "input": inputArg},
				Resolve: func(p gql.ResolveParams) (any, error) {
					payload, err := toEntity(p.Args["input"])
					if err != nil {
						return nil, err
					}
					e, err := svc.CreateEntity(p.Context, stringArg(p, "type"), payload)
					if err != nil {
						return nil, err
					}
					return reshape(e), nil
				},
			},
			"updateEntity": &gql.Field{
				Type: entityType,
				Args: gql.FieldConfigArgument{"type": typeArg, "id": idArg, "input": inputArg},
				Resolve: func(p gql.ResolveParams) (any, error) {
					payload, err := toEntity(p.Args["input"])
					if err != nil {
						return nil, err
					}
					e, err := svc.UpdateEntity(p.Context, stringArg(p, "type"), stringArg(p, "id"), payload)
					if errors.Is(err, apperr.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return reshape(e), nil
				},
			},
			"deleteEntity": &gql.Field{
				Type: gql.NewNonNull(gql.Boolean),
				Args: gql.FieldConfigArgument{"type": typeArg, "id": idArg},
				Resolve: func(p gql.ResolveParams) (any, error) {
					return svc.DeleteEntity(p.Context, stringArg(p, "type"), stringArg(p, "id"))
				},
			},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{Query: query, Mutation: mutation})
}

func stringArg(p gql.ResolveParams, name string) string {
	s, _ := p.Args[name].(string)
	return s
}

// reshape lifts the reserved fields to the top level and nests everything
// else under data, in stored order.
func reshape(e *models.Entity) map[string]any {
	return map[string]any{
		"id":        models.EntityID(e),
		"createdAt": models.CreatedAt(e),
		"updatedAt": models.UpdatedAt(e),
		"data":      models.UserData(e),
	}
}

func toEntity(v any) (*models.Entity, error) {
	switch v := v.(type) {
	case *models.Entity:
		return v, nil
	case map[string]any:
		return models.FromMap(v), nil
	default:
		return nil, fmt.Errorf("%w: input must be a JSON object", apperr.ErrInvalidPayload)
	}
}

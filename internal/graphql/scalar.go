package graphql

import (
	"strconv"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/starford/mockbox/internal/models"
)

// JSONScalar passes arbitrary JSON values through unchanged.
var JSONScalar = gql.NewScalar(gql.ScalarConfig{
	Name:         "JSON",
	Description:  "Arbitrary JSON value.",
	Serialize:    func(v any) any { return v },
	ParseValue:   func(v any) any { return v },
	ParseLiteral: parseLiteral,
})

// parseLiteral converts an inline literal. Object literals keep their key
// order; variables nested inside literals and enum values become null.
func parseLiteral(v ast.Value) any {
	switch v := v.(type) {
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.IntValue:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil
		}
		return f
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil
		}
		return f
	case *ast.ObjectValue:
		e := models.NewEntity()
		for _, field := range v.Fields {
			e.Set(field.Name.Value, parseLiteral(field.Value))
		}
		return e
	case *ast.ListValue:
		out := make([]any, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, parseLiteral(item))
		}
		return out
	default:
		return nil
	}
}

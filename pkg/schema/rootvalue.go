package schema

import (
	"github.com/graphql-go/graphql"
)

// RootResolverFn is the signature of a per-request root field binding.
type RootResolverFn func(p graphql.ResolveParams) (interface{}, error)

// RootValueResolver resolves a local root field through the execution root
// value, so the schema can be compiled once while resolver bindings (and the
// request-scoped loaders they capture) are constructed per request.
//
// A field with no binding resolves to null, mirroring fields the local
// integration does not support.
func RootValueResolver(fieldName string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		bindings, ok := p.Info.RootValue.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		switch fn := bindings[fieldName].(type) {
		case RootResolverFn:
			return fn(p)
		case func(p graphql.ResolveParams) (interface{}, error):
			return fn(p)
		default:
			return nil, nil
		}
	}
}

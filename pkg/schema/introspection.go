// Package schema composes one executable GraphQL schema out of a local
// schema and zero or more remotely hosted schemas. Remote schemas are
// obtained by introspection through a resolver fetcher, rendered to SDL for
// cache persistence, and rebuilt into executable form with delegating
// resolvers on their root fields.
package schema

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/fetcher"
)

// Fetcher is the remote resolver capability consumed by this package. It is
// satisfied by fetcher.ActionFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, op fetcher.Operation) (*fetcher.Response, error)
}

// IntrospectionQuery is the standard introspection document sent to remote
// actions. Descriptions are omitted; they are not needed to rebuild an
// executable schema.
const IntrospectionQuery = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types {
      ...FullType
    }
  }
}

fragment FullType on __Type {
  kind
  name
  fields(includeDeprecated: true) {
    name
    args {
      ...InputValue
    }
    type {
      ...TypeRef
    }
    isDeprecated
    deprecationReason
  }
  inputFields {
    ...InputValue
  }
  interfaces {
    ...TypeRef
  }
  enumValues(includeDeprecated: true) {
    name
    isDeprecated
    deprecationReason
  }
  possibleTypes {
    ...TypeRef
  }
}

fragment InputValue on __InputValue {
  name
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
      }
    }
  }
}`

// Type kinds reported by introspection.
const (
	kindScalar      = "SCALAR"
	kindObject      = "OBJECT"
	kindInterface   = "INTERFACE"
	kindUnion       = "UNION"
	kindEnum        = "ENUM"
	kindInputObject = "INPUT_OBJECT"
	kindList        = "LIST"
	kindNonNull     = "NON_NULL"
)

// IntrospectionSchema is the decoded __schema payload of an introspection
// response.
type IntrospectionSchema struct {
	QueryType        *IntrospectionTypeRef `json:"queryType"`
	MutationType     *IntrospectionTypeRef `json:"mutationType"`
	SubscriptionType *IntrospectionTypeRef `json:"subscriptionType"`
	Types            []IntrospectionType   `json:"types"`
}

type IntrospectionTypeRef struct {
	Kind   string                `json:"kind,omitempty"`
	Name   string                `json:"name,omitempty"`
	OfType *IntrospectionTypeRef `json:"ofType,omitempty"`
}

type IntrospectionType struct {
	Kind          string                  `json:"kind"`
	Name          string                  `json:"name"`
	Fields        []IntrospectionField    `json:"fields,omitempty"`
	InputFields   []IntrospectionInput    `json:"inputFields,omitempty"`
	Interfaces    []IntrospectionTypeRef  `json:"interfaces,omitempty"`
	EnumValues    []IntrospectionEnumItem `json:"enumValues,omitempty"`
	PossibleTypes []IntrospectionTypeRef  `json:"possibleTypes,omitempty"`
}

type IntrospectionField struct {
	Name string               `json:"name"`
	Args []IntrospectionInput `json:"args,omitempty"`
	Type IntrospectionTypeRef `json:"type"`
}

type IntrospectionInput struct {
	Name         string               `json:"name"`
	Type         IntrospectionTypeRef `json:"type"`
	DefaultValue *string              `json:"defaultValue,omitempty"`
}

type IntrospectionEnumItem struct {
	Name string `json:"name"`
}

// Introspect runs the standard introspection query through the given fetcher
// and decodes the resulting type system.
func Introspect(ctx context.Context, f Fetcher) (*IntrospectionSchema, error) {
	resp, err := f.Fetch(ctx, fetcher.Operation{
		Query:         IntrospectionQuery,
		OperationName: "IntrospectionQuery",
	})
	if err != nil {
		return nil, fmt.Errorf("introspection call failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("introspection rejected: %s", resp.Errors[0].Message)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("introspection returned no data")
	}

	var payload struct {
		Schema *IntrospectionSchema `json:"__schema"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode introspection data: %w", err)
	}
	if payload.Schema == nil {
		return nil, fmt.Errorf("introspection data carries no __schema")
	}
	return payload.Schema, nil
}

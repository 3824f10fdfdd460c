// Package core dispatches inbound GraphQL requests: canned fast-path
// answers, schema resolution through the composed-schema cache, and query
// execution against request-scoped loaders.
package core

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

// Request is the transport-independent inbound request. Variables may
// arrive as a JSON object or as a JSON-encoded string; GET transports can
// only deliver the latter.
type Request struct {
	OperationName string      `json:"operationName"`
	Query         string      `json:"query"`
	Variables     interface{} `json:"variables"`

	// Store selects the sheet partition; empty falls back to the
	// dispatcher's default store.
	Store string `json:"-"`
	// CacheTTL, when set and positive, enables external schema caching for
	// this request with that many seconds.
	CacheTTL *int `json:"-"`
	// RemoteSchemas overrides the dispatcher's configured remote sources
	// when non-nil.
	RemoteSchemas map[string]schema.RemoteSource `json:"-"`
	// Token is passed through to resolvers opaquely.
	Token string `json:"-"`
}

// ParsedVariables normalizes the variables to a map, decoding the
// string form when needed.
func (r *Request) ParsedVariables() (map[string]interface{}, error) {
	switch v := r.Variables.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("decode variables: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("variables must be an object or a JSON-encoded string")
	}
}

// Response is the transport-independent outcome of a dispatch.
type Response struct {
	StatusCode int
	Body       interface{}
}

func errorResponse(statusCode int, message string) Response {
	return Response{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": message,
		},
	}
}

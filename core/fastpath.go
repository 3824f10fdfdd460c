package core

import (
	_ "embed"

	"github.com/goccy/go-json"
)

//go:embed resources/introspection.json
var introspectionResponse []byte

//go:embed resources/storeconfig.json
var storeConfigResponse []byte

// FastPath maps known operation names to canned responses that bypass
// composition and execution entirely. The cockpit pagination operations
// were once answered here too; they now fall through to normal dispatch,
// where the operation name steers subtree expansion instead.
type FastPath struct {
	responses map[string]json.RawMessage
}

func NewFastPath() *FastPath {
	return &FastPath{
		responses: map[string]json.RawMessage{
			"IntrospectionQuery": introspectionResponse,
			"StoreConfigQuery":   storeConfigResponse,
		},
	}
}

// Lookup returns the canned body for operationName, if any.
func (f *FastPath) Lookup(operationName string) (json.RawMessage, bool) {
	body, ok := f.responses[operationName]
	return body, ok
}

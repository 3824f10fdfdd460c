package catalog

import (
	_ "embed"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

//go:embed schema.graphqls
var baseSDL string

// shoppinglistSDL extends the query root with a type the base commerce
// schema does not know about.
const shoppinglistSDL = `
extend type Query {
  shoppinglist(id: String!): Shoppinglist
}

type Shoppinglist {
  id: String
  products: [ProductItem]
}
`

// localQueryFields is the allow-list of base query fields this integration
// implements.
var localQueryFields = []string{
	"products",
	"category",
	"customAttributeMetadata",
	"categoryList",
	"categories",
}

// LocalSchema returns the local source SDL: the base commerce schema with
// its mutation type dropped, the query root restricted to the implemented
// fields, and the shoppinglist extension applied.
func LocalSchema() (string, error) {
	return schema.NewSchemaBuilder(baseSDL).
		RemoveMutationType().
		FilterQueryFields(localQueryFields...).
		Extend(shoppinglistSDL).
		SDL()
}

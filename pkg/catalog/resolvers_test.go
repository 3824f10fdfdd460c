package catalog

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

func TestLocalSchema(t *testing.T) {
	sdl, err := LocalSchema()
	require.NoError(t, err)

	assert.NotContains(t, sdl, "Mutation")
	assert.NotContains(t, sdl, "storeConfig")
	assert.Contains(t, sdl, "shoppinglist(id: String!): Shoppinglist")
	assert.Contains(t, sdl, "type Shoppinglist")
}

func composeLocal(t *testing.T) *schema.ComposedSchema {
	t.Helper()
	sdl, err := LocalSchema()
	require.NoError(t, err)

	composer := schema.NewComposer(sdl, schema.ComposerOptions{
		LocalRootResolver:  schema.RootValueResolver,
		LocalTypeResolvers: TypeResolvers(),
	})
	composed, err := composer.ComposeLocal(context.Background())
	require.NoError(t, err)
	return composed
}

func executeLocal(t *testing.T, composed *schema.ComposedSchema, loaders *Loaders, operationName, query string) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:        composed.Schema,
		RequestString: query,
		RootObject:    RootBindings(loaders, operationName),
		OperationName: operationName,
		Context:       context.Background(),
	})
	require.Empty(t, result.Errors)
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	return data
}

func newTestLoaders(t *testing.T, rows []Row) (*Loaders, *sheetServer) {
	t.Helper()
	server := newSheetServer(t, rows)
	return NewLoaders(NewSheetClient(), server.URL, "wknd", zap.NewNop()), server
}

func TestResolvers_Category(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		category(id: "alpha") {
			id
			uid
			name
			description
			url_key
			url_path
			product_count
			children { uid }
		}
	}`)

	category, ok := data["category"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, category["id"])
	assert.Equal(t, "alpha", category["uid"])
	assert.Equal(t, "Alpha", category["name"])
	assert.Equal(t, "Alpha products", category["description"])
	assert.Equal(t, "alpha", category["url_key"])
	assert.Equal(t, "alpha", category["url_path"])
	assert.Equal(t, 3, category["product_count"])
	assert.Empty(t, category["children"])
}

func TestResolvers_CategoryPlaceholder(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		category(id: "missing") { id uid url_path name product_count }
	}`)

	category, ok := data["category"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0, category["id"])
	assert.Equal(t, "missing", category["uid"])
	assert.Equal(t, "missing", category["url_path"])
	assert.Nil(t, category["name"])
	assert.Nil(t, category["product_count"])
}

func TestResolvers_RootCategoryTreeBatchesChildren(t *testing.T) {
	composed := composeLocal(t)
	loaders, server := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		category(id: "root") {
			name
			product_count
			children { uid name product_count }
		}
	}`)

	category, ok := data["category"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, RootCategoryTitle, category["name"])
	assert.Equal(t, 6, category["product_count"])

	children, ok := category["children"].([]interface{})
	require.True(t, ok)
	require.Len(t, children, 3)
	first, ok := children[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alpha", first["uid"])
	assert.Equal(t, "Alpha", first["name"])
	assert.Equal(t, 3, first["product_count"])

	// Root load: store sheet + base sheet. Children load: one more batch,
	// so two more fetches, regardless of the number of children.
	assert.EqualValues(t, 4, server.hits.Load())
}

func TestResolvers_ProductsSearch(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		products(search: "blue", pageSize: 1, currentPage: 2) {
			total_count
			offset
			limit
			page_info { page_size current_page total_pages }
			items { sku name price { currency amount } }
		}
	}`)

	products, ok := data["products"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, products["total_count"])
	assert.Equal(t, 2, products["offset"])
	assert.Equal(t, 1, products["limit"])

	pageInfo, ok := products["page_info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, pageInfo["page_size"])
	assert.Equal(t, 2, pageInfo["current_page"])
	assert.Equal(t, 2, pageInfo["total_pages"])

	items, ok := products["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	item, ok := items[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "B1", item["sku"])
	price, ok := item["price"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "USD", price["currency"])
	assert.Equal(t, 30.0, price["amount"])
}

func TestResolvers_CategoriesByUIDList(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		categories(filters: { category_uid: { in: ["alpha", "beta"] } }) {
			total_count
			page_info { __typename total_pages }
			items { uid name }
		}
	}`)

	categories, ok := data["categories"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, categories["total_count"])

	pageInfo, ok := categories["page_info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SearchResultPageInfo", pageInfo["__typename"])
	assert.Equal(t, 1, pageInfo["total_pages"])

	items, ok := categories["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)
	second, ok := items[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "beta", second["uid"])
	assert.Equal(t, "Beta", second["name"])
}

func TestResolvers_CategoriesSubtreeExpansion(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "categoryByFilterPagination", `
		query categoryByFilterPagination {
			categories(filters: { category_uid: { eq: "root" } }) {
				total_count
				items { uid }
			}
		}`)

	categories, ok := data["categories"].(map[string]interface{})
	require.True(t, ok)
	// The subtree operation resolves the filtered category's children, not
	// the category itself.
	assert.Equal(t, 3, categories["total_count"])
}

func TestResolvers_CategoryListResolvesLastFilteredID(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		categoryList(filters: { category_uid: { in: ["alpha", "beta"] } }) { uid }
	}`)

	list, ok := data["categoryList"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	entry, ok := list[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "beta", entry["uid"])
}

func TestResolvers_CategoryListEmptyFilter(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		categoryList { uid }
	}`)

	list, ok := data["categoryList"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, list)
}

func TestResolvers_UnsupportedFieldsResolveToNull(t *testing.T) {
	composed := composeLocal(t)
	loaders, _ := newTestLoaders(t, fixtureRows())

	data := executeLocal(t, composed, loaders, "", `{
		customAttributeMetadata(attributes: [{ attribute_code: "color" }]) { items { attribute_code } }
		shoppinglist(id: "1") { id }
	}`)

	assert.Nil(t, data["customAttributeMetadata"])
	assert.Nil(t, data["shoppinglist"])
}

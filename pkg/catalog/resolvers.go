package catalog

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/loader"
	"github.com/jihuang-adobe/CIF-excelsheet/pkg/schema"
)

// Operation names whose category filter expands to the subtree below the
// filtered category.
const (
	opCategoryByParentUID = "cockpitCategoryByParentUIDPagination"
	opCategoryByFilter    = "categoryByFilterPagination"
)

// DataSourceWithStore partitions the sheet data source by store.
func DataSourceWithStore(dataSource, store string) string {
	return dataSource + "?sheet=" + store
}

// Loaders is the request-scoped loader set behind the local resolvers.
// Batching and caching are isolated per request by constructing one Loaders
// per inbound query.
type Loaders struct {
	Categories *CategoryLoader
	Products   *ProductsLoader

	client   *SheetClient
	storeURL string
	baseURL  string
	logger   *zap.Logger
}

// NewLoaders builds the loader set for one request. dataSource is the
// unpartitioned sheet URL; store selects the per-store partition.
func NewLoaders(client *SheetClient, dataSource, store string, logger *zap.Logger) *Loaders {
	storeURL := DataSourceWithStore(dataSource, store)
	return &Loaders{
		Categories: NewCategoryLoader(client, storeURL, dataSource, logger),
		Products:   NewProductsLoader(client, dataSource, logger),
		client:     client,
		storeURL:   storeURL,
		baseURL:    dataSource,
		logger:     logger,
	}
}

// CategoryNode is the lazily resolved category entity. Constructing a node
// registers its id with the category loader; the entity is fetched when a
// field that needs it first resolves, batched with every sibling node
// registered by then.
type CategoryNode struct {
	uid     string
	loaders *Loaders
	thunk   loader.Thunk[*Category]
}

func newCategoryNode(ctx context.Context, loaders *Loaders, uid string) *CategoryNode {
	return &CategoryNode{
		uid:     uid,
		loaders: loaders,
		thunk:   loaders.Categories.Load(ctx, uid),
	}
}

func (n *CategoryNode) category() (*Category, error) {
	return n.thunk()
}

// ProductSearch is the lazily resolved product search envelope.
type ProductSearch struct {
	spec    SearchSpec
	loaders *Loaders
	thunk   loader.Thunk[*SearchResult]
}

func newProductSearch(ctx context.Context, loaders *Loaders, spec SearchSpec) *ProductSearch {
	return &ProductSearch{
		spec:    spec,
		loaders: loaders,
		thunk:   loaders.Products.Load(ctx, spec),
	}
}

func (s *ProductSearch) result() (*SearchResult, error) {
	return s.thunk()
}

// ProductNode pairs one mapped product with the loaders resolving its
// category memberships.
type ProductNode struct {
	product *Product
	loaders *Loaders
}

// RootBindings builds the per-request root resolver bindings consumed
// through the execution root value. The operation name steers subtree
// expansion of category filters.
func RootBindings(loaders *Loaders, operationName string) map[string]interface{} {
	return map[string]interface{}{
		"products": schema.RootResolverFn(func(p graphql.ResolveParams) (interface{}, error) {
			spec, err := searchSpecFromArgs(p.Args)
			if err != nil {
				return nil, err
			}
			return newProductSearch(p.Context, loaders, spec), nil
		}),

		"category": schema.RootResolverFn(func(p graphql.ResolveParams) (interface{}, error) {
			id, ok := p.Args["id"].(string)
			if !ok || id == "" {
				return nil, nil
			}
			return newCategoryNode(p.Context, loaders, id), nil
		}),

		"categoryList": schema.RootResolverFn(func(p graphql.ResolveParams) (interface{}, error) {
			ids, err := loaders.categoryIDs(p.Context, p.Args, operationName)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return []*CategoryNode{}, nil
			}
			// The list form resolves the last filtered id only.
			return []*CategoryNode{newCategoryNode(p.Context, loaders, ids[len(ids)-1])}, nil
		}),

		"categories": schema.RootResolverFn(func(p graphql.ResolveParams) (interface{}, error) {
			ids, err := loaders.categoryIDs(p.Context, p.Args, operationName)
			if err != nil {
				return nil, err
			}
			items := make([]*CategoryNode, len(ids))
			for i, id := range ids {
				items[i] = newCategoryNode(p.Context, loaders, id)
			}
			return map[string]interface{}{
				"items":       items,
				"total_count": len(items),
				"page_info": map[string]interface{}{
					"total_pages": 1,
				},
			}, nil
		}),

		// Not supported by this integration.
		"customAttributeMetadata": schema.RootResolverFn(func(graphql.ResolveParams) (interface{}, error) {
			return nil, nil
		}),
	}
}

// categoryIDs derives the candidate category ids from a categories filter.
// Overlapping clauses resolve deterministically: ids.eq, url_key.eq,
// url_path.eq and parent_category_uid.eq override each other in that order,
// and category_uid (in over eq) overrides them all. For subtree operations
// the filtered id expands to its direct subcategories.
func (l *Loaders) categoryIDs(ctx context.Context, args map[string]interface{}, operationName string) ([]string, error) {
	var filter CategoryFilter
	if raw, ok := args["filters"]; ok {
		if err := decodeArgument(raw, &filter); err != nil {
			return nil, fmt.Errorf("decode categories filter: %w", err)
		}
	}

	var ids []string
	pickEq := func(clause *FilterEq) {
		if clause != nil && clause.Eq != "" {
			ids = []string{clause.Eq}
		}
	}
	pickEq(filter.IDs)
	pickEq(filter.URLKey)
	pickEq(filter.URLPath)
	pickEq(filter.ParentCategoryUID)
	if values := filter.CategoryUID.values(); values != nil {
		ids = values
	}

	if len(ids) == 0 {
		return nil, nil
	}

	if operationName == opCategoryByParentUID || operationName == opCategoryByFilter {
		return l.client.Subcategories(ctx, l.storeURL, ids[0])
	}
	return ids, nil
}

// TypeResolvers binds the local schema's named types. The resolvers are
// request-independent: every node value carries the loader set of the
// request that produced it.
func TypeResolvers() map[string]map[string]graphql.FieldResolveFn {
	return map[string]map[string]graphql.FieldResolveFn{
		"CategoryTree": categoryTreeResolvers(),
		"Products":     productsResolvers(),
		"ProductItem":  productItemResolvers(),
	}
}

func categoryTreeResolvers() map[string]graphql.FieldResolveFn {
	entityField := func(pick func(*Category) interface{}) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			node, ok := p.Source.(*CategoryNode)
			if !ok {
				return nil, nil
			}
			category, err := node.category()
			if err != nil {
				return nil, err
			}
			return pick(category), nil
		}
	}

	// Placeholder categories carry id, uid and url_path only; the row-backed
	// fields stay null.
	rowField := func(pick func(*Category) interface{}) graphql.FieldResolveFn {
		return entityField(func(c *Category) interface{} {
			if !c.HasRow {
				return nil
			}
			return pick(c)
		})
	}

	return map[string]graphql.FieldResolveFn{
		"uid": func(p graphql.ResolveParams) (interface{}, error) {
			if node, ok := p.Source.(*CategoryNode); ok {
				return node.uid, nil
			}
			return nil, nil
		},
		"id":       entityField(func(c *Category) interface{} { return c.ID }),
		"url_path": entityField(func(c *Category) interface{} { return c.Slug }),
		"url_key":  rowField(func(c *Category) interface{} { return c.URLKey }),
		"name":     rowField(func(c *Category) interface{} { return c.Title }),
		"description": rowField(func(c *Category) interface{} {
			return c.Description
		}),
		"product_count": rowField(func(c *Category) interface{} {
			return c.ProductCount
		}),
		"children": func(p graphql.ResolveParams) (interface{}, error) {
			node, ok := p.Source.(*CategoryNode)
			if !ok {
				return nil, nil
			}
			category, err := node.category()
			if err != nil {
				return nil, err
			}
			children := make([]*CategoryNode, len(category.Subcategories))
			for i, uid := range category.Subcategories {
				children[i] = newCategoryNode(p.Context, node.loaders, uid)
			}
			return children, nil
		},
		"products": func(p graphql.ResolveParams) (interface{}, error) {
			node, ok := p.Source.(*CategoryNode)
			if !ok {
				return nil, nil
			}
			return newProductSearch(p.Context, node.loaders, SearchSpec{
				CategoryID:  node.uid,
				PageSize:    intArg(p.Args, "pageSize", 20),
				CurrentPage: intArg(p.Args, "currentPage", 1),
			}), nil
		},
	}
}

func productsResolvers() map[string]graphql.FieldResolveFn {
	envelopeField := func(pick func(*ProductSearch, *SearchResult) interface{}) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			search, ok := p.Source.(*ProductSearch)
			if !ok {
				return nil, nil
			}
			result, err := search.result()
			if err != nil {
				return nil, err
			}
			return pick(search, result), nil
		}
	}

	return map[string]graphql.FieldResolveFn{
		"total_count": envelopeField(func(_ *ProductSearch, r *SearchResult) interface{} {
			return r.Total
		}),
		"offset": envelopeField(func(_ *ProductSearch, r *SearchResult) interface{} {
			return r.Offset
		}),
		"limit": envelopeField(func(_ *ProductSearch, r *SearchResult) interface{} {
			return r.Limit
		}),
		"page_info": envelopeField(func(s *ProductSearch, r *SearchResult) interface{} {
			totalPages := 0
			if r.Limit > 0 {
				totalPages = (r.Total + r.Limit - 1) / r.Limit
			}
			return map[string]interface{}{
				"page_size":    r.Limit,
				"current_page": s.spec.CurrentPage,
				"total_pages":  totalPages,
			}
		}),
		"items": envelopeField(func(s *ProductSearch, r *SearchResult) interface{} {
			items := make([]*ProductNode, len(r.Products))
			for i, product := range r.Products {
				items[i] = &ProductNode{product: product, loaders: s.loaders}
			}
			return items
		}),
	}
}

func productItemResolvers() map[string]graphql.FieldResolveFn {
	productField := func(pick func(*Product) interface{}) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			node, ok := p.Source.(*ProductNode)
			if !ok {
				return nil, nil
			}
			return pick(node.product), nil
		}
	}

	return map[string]graphql.FieldResolveFn{
		"id":                productField(func(p *Product) interface{} { return p.ID }),
		"sku":               productField(func(p *Product) interface{} { return p.SKU }),
		"name":              productField(func(p *Product) interface{} { return p.Title }),
		"description":       productField(func(p *Product) interface{} { return p.Description }),
		"short_description": productField(func(p *Product) interface{} { return p.ShortDescription }),
		"image_url":         productField(func(p *Product) interface{} { return p.ImageURL }),
		"price": productField(func(p *Product) interface{} {
			if p.Price == nil {
				return nil
			}
			return p.Price
		}),
		"categories": func(p graphql.ResolveParams) (interface{}, error) {
			node, ok := p.Source.(*ProductNode)
			if !ok {
				return nil, nil
			}
			categories := make([]*CategoryNode, len(node.product.CategoryUIDs))
			for i, uid := range node.product.CategoryUIDs {
				categories[i] = newCategoryNode(p.Context, node.loaders, uid)
			}
			return categories, nil
		},
	}
}

func searchSpecFromArgs(args map[string]interface{}) (SearchSpec, error) {
	spec := SearchSpec{
		PageSize:    intArg(args, "pageSize", 20),
		CurrentPage: intArg(args, "currentPage", 1),
	}
	if raw, ok := args["search"]; ok {
		if s, ok := raw.(string); ok {
			spec.Search = &s
		}
	}
	if raw, ok := args["categoryId"]; ok {
		if id, ok := raw.(string); ok {
			spec.CategoryID = id
		}
	}
	if raw, ok := args["filter"]; ok {
		var filter ProductFilter
		if err := decodeArgument(raw, &filter); err != nil {
			return spec, fmt.Errorf("decode products filter: %w", err)
		}
		spec.Filter = &filter
	}
	return spec, nil
}

func decodeArgument(raw interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func intArg(args map[string]interface{}, name string, fallback int) int {
	if raw, ok := args[name]; ok {
		if n, ok := raw.(int); ok {
			return n
		}
	}
	return fallback
}

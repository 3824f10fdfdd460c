package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/loader"
)

// ProductsLoader batches product searches keyed by their canonical search
// spec. One batch fetches the sheet once; every spec is then filtered and
// paginated against the in-memory rows.
type ProductsLoader struct {
	*loader.Loader[SearchSpec, *SearchResult]
}

// NewProductsLoader builds a request-scoped products loader over the
// unpartitioned sheet at dataSourceURL.
func NewProductsLoader(client *SheetClient, dataSourceURL string, logger *zap.Logger) *ProductsLoader {
	batch := func(ctx context.Context, specs []SearchSpec) []loader.Result[*SearchResult] {
		results := make([]loader.Result[*SearchResult], len(specs))

		logger.Debug("searching products", zap.Int("batch", len(specs)))

		rows, err := client.FetchRows(ctx, dataSourceURL)
		if err != nil {
			return failBatch(results, err)
		}

		for i, spec := range specs {
			value, err := searchProducts(rows, spec)
			results[i] = loader.Result[*SearchResult]{Value: value, Err: err}
		}
		return results
	}

	return &ProductsLoader{
		Loader: loader.New(batch, loader.Options[SearchSpec, *SearchResult]{
			KeyFn: loader.JSONKey[SearchSpec],
		}),
	}
}

// searchProducts applies exactly one of the search's filters, in the
// precedence category id, free-text search, structured filter, then
// paginates.
func searchProducts(rows []Row, spec SearchSpec) (*SearchResult, error) {
	var matched []Row

	switch {
	case spec.CategoryID != "":
		for _, row := range rows {
			if matchesCategory(row, spec.CategoryID) {
				matched = append(matched, row)
			}
		}
	case spec.Search != nil:
		// An empty search degrades to a single-space substring query, which
		// matches every multi-word product name.
		needle := strings.ToLower(*spec.Search)
		if needle == "" {
			needle = " "
		}
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.ProductName), needle) {
				matched = append(matched, row)
			}
		}
	case spec.Filter != nil:
		matched = filterProducts(rows, spec.Filter)
	default:
		return nil, fmt.Errorf("product search carries no category, search text or filter")
	}

	page := paginate(matched, spec.PageSize, spec.CurrentPage)
	products := make([]*Product, len(page))
	for i, row := range page {
		products[i] = mapProductRow(row)
	}

	return &SearchResult{
		Total:    len(matched),
		Offset:   spec.CurrentPage * spec.PageSize,
		Limit:    spec.PageSize,
		Products: products,
	}, nil
}

// filterProducts applies the first populated clause group of a structured
// filter: sku or url_key membership against the product sku, then
// category_uid, then category_id, then price presence.
func filterProducts(rows []Row, filter *ProductFilter) []Row {
	var matched []Row

	if keys := firstValues(filter.SKU, filter.URLKey); keys != nil {
		for _, row := range rows {
			if containsString(keys, row.ProductSKU) {
				matched = append(matched, row)
			}
		}
		return matched
	}

	if keys := firstValues(filter.CategoryUID, filter.CategoryID); keys != nil {
		for _, row := range rows {
			if containsString(keys, row.CategoryUID) || containsString(keys, row.ParentCategoryID) {
				matched = append(matched, row)
			}
		}
		return matched
	}

	if filter.Price != nil {
		for _, row := range rows {
			if row.ProductPrice != nil {
				matched = append(matched, row)
			}
		}
	}
	return matched
}

func firstValues(clauses ...*FilterEq) []string {
	for _, clause := range clauses {
		if values := clause.values(); values != nil {
			return values
		}
	}
	return nil
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// paginate slices one 1-based page out of rows, clamped to the available
// range.
func paginate(rows []Row, pageSize, currentPage int) []Row {
	if pageSize <= 0 || currentPage <= 0 {
		return nil
	}
	start := (currentPage - 1) * pageSize
	if start >= len(rows) {
		return nil
	}
	end := currentPage * pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

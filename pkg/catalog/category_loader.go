package catalog

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/jihuang-adobe/CIF-excelsheet/pkg/loader"
)

// CategoryLoader batches category lookups by id. One batch fetches the
// store-partitioned sheet and the unpartitioned sheet once each, however
// many ids it carries, and every id is then answered from the in-memory
// rows. A fetch failure fails the whole batch; an id without a matching row
// resolves to a placeholder, not an error.
type CategoryLoader struct {
	*loader.Loader[string, *Category]
}

// NewCategoryLoader builds a request-scoped category loader. storeURL is the
// store-partitioned sheet used for category rows; baseURL is the
// unpartitioned sheet used for subcategory discovery.
func NewCategoryLoader(client *SheetClient, storeURL, baseURL string, logger *zap.Logger) *CategoryLoader {
	batch := func(ctx context.Context, ids []string) []loader.Result[*Category] {
		results := make([]loader.Result[*Category], len(ids))

		logger.Debug("loading categories", zap.Int("batch", len(ids)))

		rows, err := client.FetchRows(ctx, storeURL)
		if err != nil {
			return failBatch(results, err)
		}
		baseRows, err := client.FetchRows(ctx, baseURL)
		if err != nil {
			return failBatch(results, err)
		}

		for i, id := range ids {
			var matched []Row
			for _, row := range rows {
				if matchesCategory(row, id) {
					matched = append(matched, row)
				}
			}
			subcategories := subcategoriesOf(baseRows, id)
			results[i] = loader.Result[*Category]{
				Value: mapCategory(id, matched, subcategories),
			}
		}
		return results
	}

	return &CategoryLoader{
		Loader: loader.New(batch, loader.Options[string, *Category]{
			KeyFn: loader.IdentityKey[string],
		}),
	}
}

// mapCategory maps the rows matching one category id to its entity. The last
// matching row carries the category columns; the match count doubles as the
// product count. A category owning subcategories is labelled as a root
// category instead of carrying its own row's name and description.
func mapCategory(id string, matched []Row, subcategories []string) *Category {
	category := &Category{
		ID:   0,
		UID:  id,
		Slug: id,
	}
	if len(matched) == 0 {
		return category
	}

	row := matched[len(matched)-1]
	category.HasRow = true
	category.ProductCount = len(matched)
	category.URLKey = row.CategoryUID
	if n, err := strconv.Atoi(row.CategoryID); err == nil {
		category.ID = n
	}

	if len(subcategories) > 0 {
		category.Title = RootCategoryTitle
		category.Description = RootCategoryDescription
	} else {
		category.Title = row.CategoryName
		category.Description = row.CategoryDescription
	}
	category.Subcategories = subcategories

	return category
}

func failBatch[V any](results []loader.Result[V], err error) []loader.Result[V] {
	for i := range results {
		results[i] = loader.Result[V]{Err: err}
	}
	return results
}

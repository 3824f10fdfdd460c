// Package catalog implements the local commerce integration backed by a
// remote spreadsheet data source. It provides the request-scoped loaders
// behind the local resolvers and the entity mapping from sheet rows to the
// GraphQL type system.
package catalog

import (
	"strings"
)

// Row is one record of the remote sheet's data array. Every product row
// carries its category columns inline, so the same table answers both
// category and product lookups.
type Row struct {
	CategoryID          string   `json:"category_id"`
	ParentCategoryID    string   `json:"parent_category_id"`
	CategoryUID         string   `json:"category_uid"`
	CategoryName        string   `json:"category_name"`
	CategoryDescription string   `json:"category_description"`
	ProductID           string   `json:"product_id"`
	ProductSKU          string   `json:"product_sku"`
	ProductName         string   `json:"product_name"`
	ProductDescription  string   `json:"product_description"`
	ProductShort        string   `json:"product_short_description"`
	ProductPrice        *float64 `json:"product_price"`
	ProductThumbnailURL string   `json:"product_thumbnail_url"`
}

// RootCategoryTitle and RootCategoryDescription label a category that has
// subcategories of its own.
const (
	RootCategoryTitle       = "root category"
	RootCategoryDescription = "This is root category"
)

// Category is the mapped category entity. A lookup that matches no row still
// produces a minimal placeholder carrying only UID and Slug, never an error.
type Category struct {
	ID            int
	UID           string
	Slug          string
	URLKey        string
	Title         string
	Description   string
	ProductCount  int
	HasRow        bool
	Subcategories []string
}

// Price is a product's money value, fixed to USD by the sheet format.
type Price struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// Product is the mapped product entity.
type Product struct {
	ID               string
	SKU              string
	Title            string
	Description      string
	ShortDescription string
	Price            *Price
	ImageURL         string
	CategoryUIDs     []string
}

func mapProductRow(row Row) *Product {
	p := &Product{
		ID:               row.ProductID,
		SKU:              row.ProductSKU,
		Title:            row.ProductName,
		Description:      row.ProductDescription,
		ShortDescription: row.ProductShort,
		ImageURL:         row.ProductThumbnailURL,
		CategoryUIDs:     strings.Split(row.CategoryUID, ","),
	}
	if row.ProductPrice != nil {
		p.Price = &Price{Currency: "USD", Amount: *row.ProductPrice}
	}
	return p
}

// FilterEq is an equality-or-membership clause of a structured filter.
type FilterEq struct {
	Eq string   `mapstructure:"eq" json:"eq,omitempty"`
	In []string `mapstructure:"in" json:"in,omitempty"`
}

// values normalizes the clause to a membership list; In outranks Eq when
// both are set.
func (f *FilterEq) values() []string {
	if f == nil {
		return nil
	}
	if len(f.In) > 0 {
		return f.In
	}
	if f.Eq != "" {
		return []string{f.Eq}
	}
	return nil
}

// FilterRange is a range clause. The product search treats a price range as
// presence-only: any price filter selects the rows that carry a price.
type FilterRange struct {
	From string `mapstructure:"from" json:"from,omitempty"`
	To   string `mapstructure:"to" json:"to,omitempty"`
}

// ProductFilter is the structured filter of a product search. Exactly one
// clause group applies, in the order sku/url_key, category_uid, category_id,
// price.
type ProductFilter struct {
	SKU         *FilterEq    `mapstructure:"sku" json:"sku,omitempty"`
	URLKey      *FilterEq    `mapstructure:"url_key" json:"url_key,omitempty"`
	CategoryUID *FilterEq    `mapstructure:"category_uid" json:"category_uid,omitempty"`
	CategoryID  *FilterEq    `mapstructure:"category_id" json:"category_id,omitempty"`
	Price       *FilterRange `mapstructure:"price" json:"price,omitempty"`
}

// CategoryFilter is the filter argument of the category list fields.
type CategoryFilter struct {
	IDs               *FilterEq `mapstructure:"ids" json:"ids,omitempty"`
	CategoryUID       *FilterEq `mapstructure:"category_uid" json:"category_uid,omitempty"`
	URLKey            *FilterEq `mapstructure:"url_key" json:"url_key,omitempty"`
	URLPath           *FilterEq `mapstructure:"url_path" json:"url_path,omitempty"`
	ParentCategoryUID *FilterEq `mapstructure:"parent_category_uid" json:"parent_category_uid,omitempty"`
}

// SearchSpec is the composite loader key of one product search. Its
// canonical JSON form is the batching cache key, so structurally equal specs
// coalesce and cache together.
type SearchSpec struct {
	CategoryID  string         `json:"categoryId,omitempty"`
	Search      *string        `json:"search,omitempty"`
	Filter      *ProductFilter `json:"filter,omitempty"`
	PageSize    int            `json:"pageSize"`
	CurrentPage int            `json:"currentPage"`
}

// SearchResult is the product search envelope: the pre-pagination total, the
// next page's record offset, the page size and the page of products.
type SearchResult struct {
	Total    int
	Offset   int
	Limit    int
	Products []*Product
}

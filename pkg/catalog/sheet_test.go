package catalog

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
)

func floatPtr(f float64) *float64 { return &f }

// fixtureRows is a small catalog: a root category with three subcategories,
// five multi-word product names and one single-word name.
func fixtureRows() []Row {
	return []Row{
		{CategoryID: "2", ParentCategoryID: "root", CategoryUID: "alpha", CategoryName: "Alpha", CategoryDescription: "Alpha products", ProductID: "101", ProductSKU: "A1", ProductName: "Blue Shirt", ProductDescription: "A blue shirt", ProductShort: "Blue", ProductPrice: floatPtr(10), ProductThumbnailURL: "http://img/a1.jpg"},
		{CategoryID: "2", ParentCategoryID: "root", CategoryUID: "alpha", CategoryName: "Alpha", CategoryDescription: "Alpha products", ProductID: "102", ProductSKU: "A2", ProductName: "Red Shirt", ProductPrice: floatPtr(20)},
		{CategoryID: "2", ParentCategoryID: "root", CategoryUID: "alpha", CategoryName: "Alpha", CategoryDescription: "Alpha products", ProductID: "103", ProductSKU: "A3", ProductName: "Green Hat"},
		{CategoryID: "3", ParentCategoryID: "root", CategoryUID: "beta", CategoryName: "Beta", CategoryDescription: "Beta products", ProductID: "201", ProductSKU: "B1", ProductName: "Blue Pants", ProductPrice: floatPtr(30)},
		{CategoryID: "3", ParentCategoryID: "root", CategoryUID: "beta", CategoryName: "Beta", CategoryDescription: "Beta products", ProductID: "202", ProductSKU: "B2", ProductName: "Canvas Bag"},
		{CategoryID: "4", ParentCategoryID: "root", CategoryUID: "gamma", CategoryName: "Gamma", CategoryDescription: "Gamma products", ProductID: "301", ProductSKU: "C1", ProductName: "Socks", ProductPrice: floatPtr(5)},
	}
}

func bulkRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			CategoryID:       "9",
			ParentCategoryID: "root",
			CategoryUID:      "bulk",
			CategoryName:     "Bulk",
			ProductID:        fmt.Sprintf("%d", 1000+i),
			ProductSKU:       fmt.Sprintf("BULK-%02d", i),
			ProductName:      fmt.Sprintf("Bulk Item %02d", i),
			ProductPrice:     floatPtr(float64(i)),
		}
	}
	return rows
}

// sheetServer serves a sheet document and counts the requests it answers.
type sheetServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newSheetServer(t *testing.T, rows []Row) *sheetServer {
	t.Helper()
	s := &sheetServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"total": len(rows),
			"data":  rows,
		}); err != nil {
			t.Error(err)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

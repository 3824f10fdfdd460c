package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrNotJSON reports a data source response whose content type indicates a
// non-JSON document. Such a document cannot be filtered as row data.
var ErrNotJSON = errors.New("data source returned a non-JSON document")

// SheetClient reads the remote spreadsheet data source: an HTTP GET
// returning a JSON document whose "data" member is an array of row records.
// The same document, addressed with a "?sheet=<store>" query, serves as the
// per-store partition.
type SheetClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// SheetClientOption configures a SheetClient.
type SheetClientOption func(*SheetClient)

func WithSheetHTTPClient(c *http.Client) SheetClientOption {
	return func(s *SheetClient) {
		s.httpClient = c
	}
}

func WithSheetLogger(l *zap.Logger) SheetClientOption {
	return func(s *SheetClient) {
		s.logger = l
	}
}

func NewSheetClient(opts ...SheetClientOption) *SheetClient {
	s := &SheetClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchRows retrieves the sheet at url and decodes its data array.
func (s *SheetClient) FetchRows(ctx context.Context, url string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(strings.ToLower(ct), "html") {
		return nil, fmt.Errorf("%w (content type %q)", ErrNotJSON, ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sheet body: %w", err)
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || !data.IsArray() {
		return nil, fmt.Errorf("sheet document carries no data array")
	}

	var rows []Row
	if err := json.Unmarshal([]byte(data.Raw), &rows); err != nil {
		return nil, fmt.Errorf("decode sheet rows: %w", err)
	}

	s.logger.Debug("fetched sheet", zap.String("url", url), zap.Int("rows", len(rows)))
	return rows, nil
}

// Subcategories returns the de-duplicated uids of the direct subcategories
// of categoryID, in row order.
func (s *SheetClient) Subcategories(ctx context.Context, url, categoryID string) ([]string, error) {
	rows, err := s.FetchRows(ctx, url)
	if err != nil {
		return nil, err
	}
	return subcategoriesOf(rows, categoryID), nil
}

// AllCategoryUIDs returns every distinct category uid of rows carrying a
// category id, in row order.
func (s *SheetClient) AllCategoryUIDs(ctx context.Context, url string) ([]string, error) {
	rows, err := s.FetchRows(ctx, url)
	if err != nil {
		return nil, err
	}

	var uids []string
	seen := map[string]bool{}
	for _, row := range rows {
		if row.CategoryID == "" || seen[row.CategoryUID] {
			continue
		}
		seen[row.CategoryUID] = true
		uids = append(uids, row.CategoryUID)
	}
	return uids, nil
}

func subcategoriesOf(rows []Row, categoryID string) []string {
	var uids []string
	seen := map[string]bool{}
	for _, row := range rows {
		if !strings.Contains(row.ParentCategoryID, categoryID) || seen[row.CategoryUID] {
			continue
		}
		seen[row.CategoryUID] = true
		uids = append(uids, row.CategoryUID)
	}
	return uids
}

// matchesCategory reports whether a row belongs to categoryID, by its own
// uid or its parent id, with the sheet's substring semantics.
func matchesCategory(row Row, categoryID string) bool {
	return strings.Contains(row.CategoryUID, categoryID) ||
		strings.Contains(row.ParentCategoryID, categoryID)
}

// Package fetcher wraps a single remote resolver action into a callable that
// accepts a GraphQL operation and returns its response. The same capability
// serves schema introspection and live field delegation during execution of
// the composed schema.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type contextKey string

const tokenContextKey contextKey = "token"

// WithToken attaches the caller's opaque auth token to the context. Fetch
// forwards it as the Authorization header of the outgoing call.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the token attached with WithToken, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// Operation is the GraphQL operation envelope sent to a remote action.
type Operation struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

// Error is a GraphQL error reported by a remote action.
type Error struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Response is the GraphQL-shaped response of a remote action. Data is kept
// raw so delegated subtrees pass through without re-encoding.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors,omitempty"`
}

// Field extracts and decodes one root field from the response data. The
// second return value reports whether the field was present.
func (r *Response) Field(name string) (interface{}, bool, error) {
	if len(r.Data) == 0 {
		return nil, false, nil
	}
	raw, dataType, _, err := jsonparser.Get(r.Data, name)
	if err == jsonparser.KeyPathNotFoundError {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("extract field %q: %w", name, err)
	}
	if dataType == jsonparser.Null {
		return nil, true, nil
	}
	var value interface{}
	if dataType == jsonparser.String {
		// jsonparser strips the quotes but leaves escape sequences encoded.
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return nil, false, fmt.Errorf("decode field %q: %w", name, err)
		}
		return s, true, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("decode field %q: %w", name, err)
	}
	return value, true, nil
}

// ActionFetcher invokes one named remote action over HTTP. It carries no
// retry policy; a transport failure surfaces as an error for the delegated
// field or subtree only.
type ActionFetcher struct {
	action string
	client *http.Client
	logger *zap.Logger
}

// Option configures an ActionFetcher.
type Option func(*ActionFetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *ActionFetcher) {
		f.client = client
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *ActionFetcher) {
		f.logger = logger
	}
}

// NewActionFetcher wraps the remote action reachable at the given URL.
func NewActionFetcher(action string, opts ...Option) *ActionFetcher {
	f := &ActionFetcher{
		action: action,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Action returns the remote action identifier this fetcher wraps.
func (f *ActionFetcher) Action() string {
	return f.action
}

// Fetch sends the operation to the remote action and returns its GraphQL
// response. A non-2xx status or an undecodable body is a transport failure.
func (f *ActionFetcher) Fetch(ctx context.Context, op Operation) (*Response, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encode operation for action %q: %w", f.action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.action, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request for action %q: %w", f.action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token, ok := TokenFromContext(ctx); ok && token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke action %q: %w", f.action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of action %q: %w", f.action, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("remote action returned non-success status",
			zap.String("action", f.action),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("action %q returned status %d", f.action, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response of action %q: %w", f.action, err)
	}
	return &out, nil
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mlodari/camposanto/internal/common"
	"github.com/mlodari/camposanto/internal/models"
)

// HTTPGateway implements Gateway against a PostgREST-style REST API:
// collections are paths under /rest/v1, filters are query parameters like
// id=eq.7, and nested relations are expanded with the select parameter.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	tokens  *TokenSource
}

// NewHTTPGateway builds a gateway for the API at baseURL. The supplied
// http.Client carries the transport policy (the cache interceptor plugs in
// there); nil means http.DefaultClient. tokens may be nil for anonymous
// access.
func NewHTTPGateway(baseURL string, client *http.Client, tokens *TokenSource) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tokens,
	}
}

func (g *HTTPGateway) collectionURL(domain string, query url.Values) string {
	u := g.baseURL + "/rest/v1/" + url.PathEscape(domain)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (g *HTTPGateway) do(ctx context.Context, method, rawURL string, body any, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if g.tokens != nil {
		token, err := g.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, g.mapStatus(resp.StatusCode, string(msg))
	}
	return resp, nil
}

func (g *HTTPGateway) mapStatus(code int, msg string) error {
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("remote: %s: %w", msg, common.ErrorNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("remote: %s: %w", msg, common.ErrorUnauthorized)
	default:
		return fmt.Errorf("remote error (status %d): %s", code, msg)
	}
}

func decodeRecords(resp *http.Response) ([]models.Record, error) {
	defer resp.Body.Close()
	var out []models.Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

func (g *HTTPGateway) Select(ctx context.Context, domain string, opts SelectOptions) ([]models.Record, error) {
	query := url.Values{}

	sel := "*"
	if len(opts.Relations) > 0 {
		sel = "*," + strings.Join(opts.Relations, ",")
	}
	query.Set("select", sel)
	if opts.OrderBy != "" {
		query.Set("order", opts.OrderBy)
	}
	for col, val := range opts.Filter {
		query.Set(col, "eq."+val)
	}

	resp, err := g.do(ctx, http.MethodGet, g.collectionURL(domain, query), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(resp)
}

func (g *HTTPGateway) SelectByID(ctx context.Context, domain, id string) (models.Record, error) {
	recs, err := g.Select(ctx, domain, SelectOptions{Filter: map[string]string{models.IDField: id}})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.ErrorNotFound
	}
	return recs[0], nil
}

func (g *HTTPGateway) Insert(ctx context.Context, domain string, rec models.Record) (models.Record, error) {
	headers := map[string]string{"Prefer": "return=representation"}
	resp, err := g.do(ctx, http.MethodPost, g.collectionURL(domain, nil), rec, headers)
	if err != nil {
		return nil, err
	}
	created, err := decodeRecords(resp)
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("insert returned no representation: %w", common.ErrorInternal)
	}
	return created[0], nil
}

func (g *HTTPGateway) Update(ctx context.Context, domain, id string, partial models.Record) error {
	query := url.Values{}
	query.Set(models.IDField, "eq."+id)

	// The identifier addresses the row through the filter; keeping it in the
	// body too would attempt a primary-key update.
	body := partial.Clone()
	delete(body, models.IDField)

	resp, err := g.do(ctx, http.MethodPatch, g.collectionURL(domain, query), body, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (g *HTTPGateway) Delete(ctx context.Context, domain, id string) error {
	query := url.Values{}
	query.Set(models.IDField, "eq."+id)

	resp, err := g.do(ctx, http.MethodDelete, g.collectionURL(domain, query), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

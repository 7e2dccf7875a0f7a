// Package saleor fetches catalog data from a Saleor GraphQL API and decodes
// its webhook payloads into catalog types.
package saleor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/apl"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultPageSize         = 100
	DefaultMaxCategoryDepth = 32
	childrenPageSize        = 100
)

var (
	ErrCategoryNotFound      = errors.New("saleor: category not found")
	ErrCategoryCycle         = errors.New("saleor: category parent chain contains a cycle")
	ErrCategoryDepthExceeded = errors.New("saleor: category parent chain exceeds the maximum depth")
	ErrEmptyResponse         = errors.New("saleor: response carries no data")
)

// Config holds the client settings
type Config struct {
	APIURL           string
	Timeout          time.Duration
	PageSize         int
	MaxCategoryDepth int
}

// Client is a GraphQL client for one Saleor API. It does not retry.
type Client struct {
	http        *resty.Client
	apiURL      string
	pageSize    int
	maxDepth    int
	credentials apl.CredentialStore
	logger      *zap.Logger
}

// New creates a Client. Every call looks the bearer token up in credentials.
func New(cfg Config, credentials apl.CredentialStore, logger *zap.Logger) *Client {
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxCategoryDepth <= 0 {
		cfg.MaxCategoryDepth = DefaultMaxCategoryDepth
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "feedsync/1.0")

	return &Client{
		http:        httpClient,
		apiURL:      cfg.APIURL,
		pageSize:    cfg.PageSize,
		maxDepth:    cfg.MaxCategoryDepth,
		credentials: credentials,
		logger:      logger,
	}
}

// APIURL returns the URL the client talks to
func (c *Client) APIURL() string {
	return c.apiURL
}

// query runs one GraphQL operation and decodes its data into out.
// Non-2xx statuses, GraphQL errors and undecodable bodies are all transport errors.
func query[T any](ctx context.Context, c *Client, op, q string, vars map[string]any) (*T, error) {
	token, err := apl.Token(ctx, c.credentials, c.apiURL)
	if err != nil {
		return nil, shared.NewTransportError(op, fmt.Errorf("credentials: %w", err))
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(gqlRequest{Query: q, Variables: vars}).
		Post(c.apiURL)
	if err != nil {
		return nil, shared.NewTransportError(op, err)
	}
	if resp.IsError() {
		return nil, shared.NewTransportError(op, fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	var envelope gqlResponse[T]
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, shared.NewTransportError(op, fmt.Errorf("decode response: %w", err))
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return nil, shared.NewTransportError(op, fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	if envelope.Data == nil {
		return nil, shared.NewTransportError(op, ErrEmptyResponse)
	}
	return envelope.Data, nil
}

// paginate follows cursors until the last page. Any page error discards what was collected.
func paginate[T any](ctx context.Context, fetch func(ctx context.Context, after *string) (*connection[T], error)) ([]T, error) {
	var (
		out   []T
		after *string
	)
	for {
		page, err := fetch(ctx, after)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return out, nil
		}
		for _, e := range page.Edges {
			out = append(out, e.Node)
		}
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == nil {
			return out, nil
		}
		after = page.PageInfo.EndCursor
	}
}

func pageVars(first int, after *string, channel string) map[string]any {
	vars := map[string]any{"first": first, "channel": channel}
	if after != nil {
		vars["after"] = *after
	}
	return vars
}

// FetchProducts returns every product visible in channel, with variants and category
func (c *Client) FetchProducts(ctx context.Context, channel string) ([]catalog.Product, error) {
	dtos, err := paginate(ctx, func(ctx context.Context, after *string) (*connection[productDTO], error) {
		data, err := query[productsData](ctx, c, "saleor.fetch_products", productsQuery, pageVars(c.pageSize, after, channel))
		if err != nil {
			return nil, err
		}
		return data.Products, nil
	})
	if err != nil {
		return nil, err
	}

	var d decoder
	products := make([]catalog.Product, len(dtos))
	for i, dto := range dtos {
		products[i] = dto.toDomain(&d)
	}
	d.log(c.logger, "saleor.fetch_products")
	c.logger.Debug("fetched products", zap.String("channel", channel), zap.Int("count", len(products)))
	return products, nil
}

// FetchShippingZones returns every shipping zone of channel with prices of that channel
func (c *Client) FetchShippingZones(ctx context.Context, channel string) ([]catalog.ShippingZone, error) {
	dtos, err := paginate(ctx, func(ctx context.Context, after *string) (*connection[shippingZoneDTO], error) {
		data, err := query[shippingZonesData](ctx, c, "saleor.fetch_shipping_zones", shippingZonesQuery, pageVars(c.pageSize, after, channel))
		if err != nil {
			return nil, err
		}
		return data.ShippingZones, nil
	})
	if err != nil {
		return nil, err
	}

	var d decoder
	zones := make([]catalog.ShippingZone, len(dtos))
	for i, dto := range dtos {
		zones[i] = dto.toDomain(&d, channel)
	}
	d.log(c.logger, "saleor.fetch_shipping_zones")
	c.logger.Debug("fetched shipping zones", zap.String("channel", channel), zap.Int("count", len(zones)))
	return zones, nil
}

// Category fetches a single category with a reference to its parent
func (c *Client) Category(ctx context.Context, id string) (*catalog.Category, error) {
	data, err := query[categoryData](ctx, c, "saleor.category", categoryQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if data.Category == nil {
		return nil, shared.NewTransportError("saleor.category", fmt.Errorf("%w: %s", ErrCategoryNotFound, id))
	}
	return data.Category.toDomain(), nil
}

// Ancestors walks from categoryID up to the root and returns the chain leaf
// first, the leaf included. A revisited id or a chain longer than the
// configured depth fails the walk.
func (c *Client) Ancestors(ctx context.Context, categoryID string) ([]catalog.Category, error) {
	const op = "saleor.ancestors"

	var chain []catalog.Category
	visited := make(map[string]struct{})
	for id := categoryID; id != ""; {
		if _, seen := visited[id]; seen {
			return nil, shared.NewTransportError(op, fmt.Errorf("%w: %s", ErrCategoryCycle, id))
		}
		if len(chain) >= c.maxDepth {
			return nil, shared.NewTransportError(op, fmt.Errorf("%w: %d", ErrCategoryDepthExceeded, c.maxDepth))
		}
		visited[id] = struct{}{}

		category, err := c.Category(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *category)
		id = category.ParentID()
	}
	return chain, nil
}

// Children returns the direct children of categoryID, first page only
func (c *Client) Children(ctx context.Context, categoryID string) ([]catalog.Category, error) {
	const op = "saleor.children"

	data, err := query[categoryChildrenData](ctx, c, op, categoryChildrenQuery,
		map[string]any{"id": categoryID, "first": childrenPageSize})
	if err != nil {
		return nil, err
	}
	if data.Category == nil {
		return nil, shared.NewTransportError(op, fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID))
	}
	if data.Category.Children == nil {
		return nil, nil
	}
	children := make([]catalog.Category, 0, len(data.Category.Children.Edges))
	for _, e := range data.Category.Children.Edges {
		children = append(children, *e.Node.toDomain())
	}
	return children, nil
}

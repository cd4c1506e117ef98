package api

import (
	"context"
	"net/http"
	"net/url"

	"rentdirect/pkg/types"
)

// PropertyEndpoints covers /properties.
type PropertyEndpoints struct {
	c *Client
}

// List returns one page of listings. filter carries search parameters such
// as city, type, minPrice, sortBy.
func (p *PropertyEndpoints) List(ctx context.Context, filter url.Values, page, limit int) (*types.Envelope[types.Page[types.Property]], error) {
	return send[types.Page[types.Property]](ctx, p.c, call{method: http.MethodGet, path: "/properties",
		query: pageQuery(filter, page, limit)})
}

func (p *PropertyEndpoints) Get(ctx context.Context, id string) (*types.Envelope[types.Property], error) {
	return send[types.Property](ctx, p.c, call{method: http.MethodGet, path: "/properties/" + url.PathEscape(id)})
}

func (p *PropertyEndpoints) Create(ctx context.Context, prop types.Property) (*types.Envelope[types.Property], error) {
	return send[types.Property](ctx, p.c, call{method: http.MethodPost, path: "/properties", body: prop})
}

func (p *PropertyEndpoints) Update(ctx context.Context, id string, prop types.Property) (*types.Envelope[types.Property], error) {
	return send[types.Property](ctx, p.c, call{method: http.MethodPut, path: "/properties/" + url.PathEscape(id), body: prop})
}

func (p *PropertyEndpoints) UpdateStatus(ctx context.Context, id, status string) (*types.Envelope[types.Property], error) {
	return send[types.Property](ctx, p.c, call{method: http.MethodPatch, path: "/properties/" + url.PathEscape(id) + "/status",
		body: map[string]string{"status": status}})
}

// Mine lists the caller's own listings.
func (p *PropertyEndpoints) Mine(ctx context.Context) (*types.Envelope[[]types.Property], error) {
	return send[[]types.Property](ctx, p.c, call{method: http.MethodGet, path: "/properties/owner/me"})
}

func (p *PropertyEndpoints) OwnerStats(ctx context.Context) (*types.Envelope[types.OwnerStats], error) {
	return send[types.OwnerStats](ctx, p.c, call{method: http.MethodGet, path: "/properties/owner/stats"})
}

func (p *PropertyEndpoints) Bookmarks(ctx context.Context) (*types.Envelope[[]types.Property], error) {
	return send[[]types.Property](ctx, p.c, call{method: http.MethodGet, path: "/properties/bookmarks"})
}

func (p *PropertyEndpoints) RemoveBookmark(ctx context.Context, id string) (*types.Envelope[struct{}], error) {
	return send[struct{}](ctx, p.c, call{method: http.MethodDelete, path: "/properties/" + url.PathEscape(id) + "/bookmark"})
}

// DealEndpoints covers /deals.
type DealEndpoints struct {
	c *Client
}

func (d *DealEndpoints) List(ctx context.Context) (*types.Envelope[[]types.Deal], error) {
	return send[[]types.Deal](ctx, d.c, call{method: http.MethodGet, path: "/deals"})
}

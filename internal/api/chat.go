package api

import (
	"context"
	"net/http"
	"net/url"

	"rentdirect/pkg/types"
)

// ChatEndpoints covers the REST side of chat; live traffic goes through the
// realtime manager.
type ChatEndpoints struct {
	c *Client
}

func (ch *ChatEndpoints) Conversations(ctx context.Context) (*types.Envelope[[]types.Conversation], error) {
	return send[[]types.Conversation](ctx, ch.c, call{method: http.MethodGet, path: "/chat/conversations"})
}

// Messages returns one page of a conversation's history.
func (ch *ChatEndpoints) Messages(ctx context.Context, conversationID string, page, limit int) (*types.Envelope[types.Page[types.Message]], error) {
	return send[types.Page[types.Message]](ctx, ch.c, call{method: http.MethodGet,
		path:  "/chat/conversations/" + url.PathEscape(conversationID) + "/messages",
		query: pageQuery(nil, page, limit)})
}

// AdminEndpoints covers /admin.
type AdminEndpoints struct {
	c *Client
}

func (a *AdminEndpoints) Overview(ctx context.Context) (*types.Envelope[types.AdminOverview], error) {
	return send[types.AdminOverview](ctx, a.c, call{method: http.MethodGet, path: "/admin/overview"})
}

// Users lists accounts; filter may carry role and status.
func (a *AdminEndpoints) Users(ctx context.Context, filter url.Values, page, limit int) (*types.Envelope[types.Page[types.User]], error) {
	return send[types.Page[types.User]](ctx, a.c, call{method: http.MethodGet, path: "/admin/users",
		query: pageQuery(filter, page, limit)})
}

func (a *AdminEndpoints) UpdateUserStatus(ctx context.Context, userID, status string) (*types.Envelope[types.User], error) {
	return send[types.User](ctx, a.c, call{method: http.MethodPatch, path: "/admin/users/" + url.PathEscape(userID) + "/status",
		body: map[string]string{"status": status}})
}

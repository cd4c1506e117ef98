package hooks

import (
	"context"

	"rentdirect/internal/api"
	"rentdirect/pkg/types"
)

// PageFunc fetches one page of a list endpoint.
type PageFunc[T any] func(ctx context.Context, page, limit int) (*types.Envelope[types.Page[T]], error)

// PaginationState mirrors the server's page metadata. HasMore and
// TotalPages are taken from the server as-is.
type PaginationState[T any] struct {
	Items      []T
	Total      int
	Page       int
	Limit      int
	TotalPages int
	HasMore    bool
}

// PaginatedState is PaginationState plus the request status.
type PaginatedState[T any] struct {
	PaginationState[T]
	IsLoading bool
	Err       *api.Error
}

type PaginatedOptions[T any] struct {
	Runtime
	InitialPage  int
	InitialLimit int
	OnSuccess    func(state PaginationState[T])
	OnError      func(err *api.Error)
}

// Paginated walks a paginated list. A failed fetch keeps the items already
// loaded.
type Paginated[T any] struct {
	fn   PageFunc[T]
	opts PaginatedOptions[T]

	t       tracker
	current PaginationState[T]
	loading bool
	err     *api.Error
}

func NewPaginated[T any](fn PageFunc[T], opts PaginatedOptions[T]) *Paginated[T] {
	opts.Runtime = opts.Runtime.withDefaults()
	if opts.InitialPage <= 0 {
		opts.InitialPage = 1
	}
	if opts.InitialLimit <= 0 {
		opts.InitialLimit = 10
	}
	return &Paginated[T]{
		fn:   fn,
		opts: opts,
		current: PaginationState[T]{
			Items: []T{},
			Page:  opts.InitialPage,
			Limit: opts.InitialLimit,
		},
	}
}

// FetchPage requests one page. A limit <= 0 keeps the current limit.
func (p *Paginated[T]) FetchPage(ctx context.Context, page, limit int) api.Result[PaginationState[T]] {
	gen := p.t.begin(func() {
		if limit <= 0 {
			limit = p.current.Limit
		}
		p.loading = true
		p.err = nil
	})
	if limit <= 0 {
		limit = p.opts.InitialLimit
	}

	data, err := api.UnwrapOrZero(p.fn(ctx, page, limit))
	if err != nil {
		apiErr := api.AsError(err, api.DefaultFetchError)
		live := p.t.settle(gen, func() {
			p.loading = false
			p.err = apiErr
		})
		if !live {
			p.opts.Metrics.RequestDone("paginated", outcomeDiscarded)
			return api.Result[PaginationState[T]]{Err: apiErr}
		}
		p.opts.Metrics.RequestDone("paginated", outcomeError)
		p.opts.Notifier.Error(apiErr.Message)
		if p.opts.OnError != nil {
			p.opts.OnError(apiErr)
		}
		return api.Result[PaginationState[T]]{Err: apiErr}
	}

	next := fromPage(data, page, limit)
	live := p.t.settle(gen, func() {
		p.current = next
		p.loading = false
	})
	if !live {
		p.opts.Metrics.RequestDone("paginated", outcomeDiscarded)
		return api.Result[PaginationState[T]]{Data: next}
	}
	p.opts.Metrics.RequestDone("paginated", outcomeSuccess)
	if p.opts.OnSuccess != nil {
		p.opts.OnSuccess(next)
	}
	return api.Result[PaginationState[T]]{Data: next}
}

// fromPage builds the state from a response, falling back to the
// requested page and limit when the server omitted them.
func fromPage[T any](data types.Page[T], page, limit int) PaginationState[T] {
	s := PaginationState[T]{
		Items:      data.Items,
		Total:      data.Pagination.Total,
		Page:       data.Pagination.Page,
		Limit:      data.Pagination.Limit,
		TotalPages: data.Pagination.TotalPages,
		HasMore:    data.Pagination.HasMore,
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	if s.Page == 0 {
		s.Page = page
	}
	if s.Limit == 0 {
		s.Limit = limit
	}
	return s
}

// GoToPage fetches page with the current limit.
func (p *Paginated[T]) GoToPage(ctx context.Context, page int) api.Result[PaginationState[T]] {
	return p.FetchPage(ctx, page, 0)
}

// NextPage fetches the following page. On the last page it makes no
// request and reports false.
func (p *Paginated[T]) NextPage(ctx context.Context) (api.Result[PaginationState[T]], bool) {
	var page, total int
	p.t.with(func() {
		page, total = p.current.Page, p.current.TotalPages
	})
	if page >= total {
		return api.Result[PaginationState[T]]{}, false
	}
	return p.FetchPage(ctx, page+1, 0), true
}

// PrevPage fetches the previous page. On the first page it makes no
// request and reports false.
func (p *Paginated[T]) PrevPage(ctx context.Context) (api.Result[PaginationState[T]], bool) {
	var page int
	p.t.with(func() { page = p.current.Page })
	if page <= 1 {
		return api.Result[PaginationState[T]]{}, false
	}
	return p.FetchPage(ctx, page-1, 0), true
}

// SetLimit changes the page size and goes back to page 1.
func (p *Paginated[T]) SetLimit(ctx context.Context, limit int) api.Result[PaginationState[T]] {
	return p.FetchPage(ctx, 1, limit)
}

// Refresh re-fetches the current page and limit.
func (p *Paginated[T]) Refresh(ctx context.Context) api.Result[PaginationState[T]] {
	var page, limit int
	p.t.with(func() {
		page, limit = p.current.Page, p.current.Limit
	})
	return p.FetchPage(ctx, page, limit)
}

func (p *Paginated[T]) State() PaginatedState[T] {
	var s PaginatedState[T]
	p.t.with(func() {
		s = PaginatedState[T]{
			PaginationState: p.current,
			IsLoading:       p.loading,
			Err:             p.err,
		}
		s.Items = append([]T{}, p.current.Items...)
	})
	return s
}

func (p *Paginated[T]) Close() {
	p.t.close()
}

// Package pagination drives server-side paging for list screens.
//
// A Controller owns the page coordinates and totals of one list and knows
// how to fetch a page into a caller-supplied consumer. Navigation helpers
// take the FetchFunc to re-invoke so that higher layers can decide which
// parameters accompany the page coordinates.
package pagination

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/client/notify"
	"github.com/dmitrijs2005/creditconsole/internal/logging"
)

const (
	DefaultPageSize       = 10
	DefaultFailureMessage = "Failed to load data"

	PageParam     = "page"
	PageSizeParam = "page_size"
)

var (
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// State is a snapshot of a Controller.
type State struct {
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	Loading     bool
}

// FetchFunc loads the given page at the given size.
type FetchFunc func(ctx context.Context, page, size int) error

type Options struct {
	PageSize int
	// FailureMessage is shown when a fetch fails, after the client has
	// already reported the specific error.
	FailureMessage string
	Notifier       notify.Notifier
	Logger         logging.Logger
}

// Controller is safe for concurrent use. Responses are applied in
// completion order.
type Controller[T any] struct {
	sender   client.Sender
	notifier notify.Notifier
	log      logging.Logger
	failure  string

	mu       sync.Mutex
	state    State
	inflight int
}

func New[T any](sender client.Sender, opts Options) *Controller[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.FailureMessage == "" {
		opts.FailureMessage = DefaultFailureMessage
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Controller[T]{
		sender:   sender,
		notifier: opts.Notifier,
		log:      opts.Logger,
		failure:  opts.FailureMessage,
		state:    State{CurrentPage: 1, PageSize: opts.PageSize, TotalPages: 1},
	}
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FetchInto requests endpoint with the current page coordinates merged
// with params (params win), feeds the items to consumer and records the
// totals. On failure the previous items and totals are left untouched and
// the failure message is notified.
func (c *Controller[T]) FetchInto(ctx context.Context, endpoint string, params url.Values, consumer func([]T)) error {
	c.mu.Lock()
	c.inflight++
	c.state.Loading = true
	query := url.Values{
		PageParam:     {strconv.Itoa(c.state.CurrentPage)},
		PageSizeParam: {strconv.Itoa(c.state.PageSize)},
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inflight--
		c.state.Loading = c.inflight > 0
		c.mu.Unlock()
	}()

	for k, vs := range params {
		query[k] = append([]string(nil), vs...)
	}

	resp, err := c.sender.Send(ctx, &client.Request{Method: http.MethodGet, Path: endpoint, Query: query})
	if err != nil {
		c.log.Warn(ctx, "failed to fetch page", "endpoint", endpoint, "error", err)
		if ctx.Err() == nil {
			c.notifier.Notify(ctx, c.failure)
		}
		return err
	}

	env := Unwrap[T](resp.Body)
	consumer(env.Items)

	c.mu.Lock()
	c.state.TotalItems = env.Total
	c.state.TotalPages = env.TotalPages
	c.mu.Unlock()
	return nil
}

// GoToPage moves to page and fetches it at the current size.
func (c *Controller[T]) GoToPage(ctx context.Context, page int, fetch FetchFunc) error {
	if page < 1 {
		return ErrInvalidPage
	}
	c.mu.Lock()
	c.state.CurrentPage = page
	size := c.state.PageSize
	c.mu.Unlock()

	return fetch(ctx, page, size)
}

// ChangePageSize sets the page size and fetches page 1.
func (c *Controller[T]) ChangePageSize(ctx context.Context, size int, fetch FetchFunc) error {
	if size < 1 {
		return ErrInvalidPageSize
	}
	c.mu.Lock()
	c.state.PageSize = size
	c.state.CurrentPage = 1
	c.mu.Unlock()

	return fetch(ctx, 1, size)
}

// ResetToFirstPage fetches page 1 at the current size.
func (c *Controller[T]) ResetToFirstPage(ctx context.Context, fetch FetchFunc) error {
	return c.GoToPage(ctx, 1, fetch)
}

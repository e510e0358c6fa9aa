// Package listquery adds search text and named filters on top of a
// pagination.Controller.
//
// Filter keys are the console's vocabulary ("category", "status", ...).
// Which remote parameter a key becomes depends on the endpoint and is
// decided once, at construction, from a table of FilterRule values.
package listquery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/client/pagination"
	"github.com/dmitrijs2005/creditconsole/internal/common"
)

const QueryParam = "query"

var ErrUnknownFilter = errors.New("unknown filter")

// FilterRule maps filter keys to remote parameter names for every endpoint
// whose path contains Match.
type FilterRule struct {
	Match  string
	Params map[string]string
}

// CommonFilters apply to every endpoint under their own name.
var CommonFilters = map[string]string{
	"status": "status",
	"class":  "class",
	"grade":  "grade",
}

// DefaultRules name the generic "category" filter per resource. The first
// matching rule wins.
var DefaultRules = []FilterRule{
	{Match: "users", Params: map[string]string{"category": "college"}},
	{Match: "activities", Params: map[string]string{"category": "category"}},
}

type Options struct {
	Endpoint string
	// Fixed parameters sent with every request, e.g. user_type.
	Fixed url.Values
	// Rules defaults to DefaultRules.
	Rules      []FilterRule
	Pagination pagination.Options
}

// Controller is safe for concurrent use.
type Controller[T any] struct {
	pager      *pagination.Controller[T]
	endpoint   string
	fixed      url.Values
	paramNames map[string]string
	consumer   func([]T)

	mu      sync.Mutex
	search  string
	filters map[string]string
}

// New builds a controller for opts.Endpoint. Every fetched page is handed
// to consumer.
func New[T any](sender client.Sender, consumer func([]T), opts Options) *Controller[T] {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules
	}

	return &Controller[T]{
		pager:      pagination.New[T](sender, opts.Pagination),
		endpoint:   opts.Endpoint,
		fixed:      opts.Fixed,
		paramNames: resolveParams(opts.Endpoint, rules),
		consumer:   consumer,
		filters:    map[string]string{},
	}
}

func resolveParams(endpoint string, rules []FilterRule) map[string]string {
	names := make(map[string]string, len(CommonFilters)+1)
	for k, v := range CommonFilters {
		names[k] = v
	}
	for _, rule := range rules {
		if strings.Contains(endpoint, rule.Match) {
			for k, v := range rule.Params {
				names[k] = v
			}
			break
		}
	}
	return names
}

func (c *Controller[T]) Endpoint() string { return c.endpoint }

func (c *Controller[T]) State() pagination.State { return c.pager.State() }

// FilterKeys lists the filters this endpoint supports, sorted.
func (c *Controller[T]) FilterKeys() []string {
	keys := make([]string, 0, len(c.paramNames))
	for k := range c.paramNames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetSearchText records the search text. Nothing is fetched.
func (c *Controller[T]) SetSearchText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = strings.TrimSpace(text)
}

func (c *Controller[T]) SearchText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// SetFilter records a filter value; "all" or "" removes it. Nothing is
// fetched.
func (c *Controller[T]) SetFilter(key, value string) error {
	if _, ok := c.paramNames[key]; !ok {
		return fmt.Errorf("%w %q for %s", ErrUnknownFilter, key, c.endpoint)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" || value == common.FilterAll {
		delete(c.filters, key)
		return nil
	}
	c.filters[key] = value
	return nil
}

// Filters returns the active filters. Unset keys read as "all".
func (c *Controller[T]) Filters() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.paramNames))
	for k := range c.paramNames {
		out[k] = common.FilterAll
	}
	for k, v := range c.filters {
		out[k] = v
	}
	return out
}

// ResetFilters clears the search text and every filter.
func (c *Controller[T]) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = ""
	c.filters = map[string]string{}
}

// BuildParams returns the query for page at size: the page coordinates,
// the fixed parameters, the search text if any and every active filter.
func (c *Controller[T]) BuildParams(page, size int) url.Values {
	params := url.Values{
		pagination.PageParam:     {strconv.Itoa(page)},
		pagination.PageSizeParam: {strconv.Itoa(size)},
	}
	for k, vs := range c.fixed {
		params[k] = append([]string(nil), vs...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.search != "" {
		params.Set(QueryParam, c.search)
	}
	for key, value := range c.filters {
		params.Set(c.paramNames[key], value)
	}
	return params
}

func (c *Controller[T]) fetch(ctx context.Context, page, size int) error {
	return c.pager.FetchInto(ctx, c.endpoint, c.BuildParams(page, size), c.consumer)
}

// ApplySearchAndFilters re-queries from page 1 with the current criteria.
func (c *Controller[T]) ApplySearchAndFilters(ctx context.Context) error {
	return c.pager.ResetToFirstPage(ctx, c.fetch)
}

// Refresh re-fetches the current page without resetting it.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	st := c.pager.State()
	return c.fetch(ctx, st.CurrentPage, st.PageSize)
}

func (c *Controller[T]) GoToPage(ctx context.Context, page int) error {
	return c.pager.GoToPage(ctx, page, c.fetch)
}

// ChangePageSize sets the page size and re-queries from page 1.
func (c *Controller[T]) ChangePageSize(ctx context.Context, size int) error {
	return c.pager.ChangePageSize(ctx, size, c.fetch)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/creditconsole/internal/common"
)

var errNoView = errors.New("no resource selected")

// Use opens a resource and fetches its first page.
func (a *App) Use(ctx context.Context, args []string) error {
	if len(args) != 1 {
		a.printResources()
		return nil
	}

	v, err := a.listService.Open(args[0])
	if err != nil {
		fmt.Fprintf(a.out, "Unknown resource %q\n", args[0])
		a.printResources()
		return err
	}

	a.mu.Lock()
	a.view = v
	a.mu.Unlock()

	return a.fetchAndRender(ctx, v.ApplySearchAndFilters)
}

func (a *App) printResources() {
	names := make([]string, 0)
	for _, r := range a.listService.Resources() {
		names = append(names, r.Name)
	}
	fmt.Fprintf(a.out, "Usage: use <resource>\nResources: %s\n", strings.Join(names, ", "))
}

// List prints the rows of the last fetch without a round trip.
func (a *App) List(_ context.Context) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	renderView(a.out, v)
	return nil
}

func (a *App) Page(ctx context.Context, args []string) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	n, err := intArg(args, "page <n>")
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	return a.fetchAndRender(ctx, func(ctx context.Context) error { return v.GoToPage(ctx, n) })
}

// Step moves delta pages, staying within 1..TotalPages.
func (a *App) Step(ctx context.Context, delta int) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	st := v.State()
	next := st.CurrentPage + delta
	if next < 1 || next > st.TotalPages {
		fmt.Fprintln(a.out, "No more pages")
		return nil
	}
	return a.fetchAndRender(ctx, func(ctx context.Context) error { return v.GoToPage(ctx, next) })
}

func (a *App) Size(ctx context.Context, args []string) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	n, err := intArg(args, "size <n>")
	if err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	return a.fetchAndRender(ctx, func(ctx context.Context) error { return v.ChangePageSize(ctx, n) })
}

// Search sets the search text (empty clears it) and re-queries from page 1.
func (a *App) Search(ctx context.Context, args []string) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	v.SetSearchText(strings.Join(args, " "))
	return a.fetchAndRender(ctx, v.ApplySearchAndFilters)
}

// Filter sets one filter and re-queries from page 1. Without arguments it
// shows the current criteria.
func (a *App) Filter(ctx context.Context, args []string) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	if len(args) == 0 {
		renderFilters(a.out, v)
		return nil
	}
	if len(args) < 2 {
		fmt.Fprintf(a.out, "Usage: filter <%s> <value|%s>\n", strings.Join(v.FilterKeys(), "|"), common.FilterAll)
		return nil
	}
	if err := v.SetFilter(args[0], strings.Join(args[1:], " ")); err != nil {
		fmt.Fprintln(a.out, err)
		return err
	}
	return a.fetchAndRender(ctx, v.ApplySearchAndFilters)
}

// Clear resets search text and filters and re-queries from page 1.
func (a *App) Clear(ctx context.Context) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	v.ResetFilters()
	return a.fetchAndRender(ctx, v.ApplySearchAndFilters)
}

func (a *App) Refresh(ctx context.Context) error {
	v := a.currentView()
	if v == nil {
		return a.noView()
	}
	return a.fetchAndRender(ctx, v.Refresh)
}

// fetchAndRender runs fetch and prints the view if it succeeded. Failures
// were already reported to the user by the notifier.
func (a *App) fetchAndRender(ctx context.Context, fetch func(context.Context) error) error {
	if err := fetch(ctx); err != nil {
		a.log.Debug(ctx, "fetch failed", "error", err)
		return err
	}
	if v := a.currentView(); v != nil {
		renderView(a.out, v)
	}
	return nil
}

func (a *App) noView() error {
	fmt.Fprintln(a.out, "No resource selected, try: use <resource>")
	return errNoView
}

func intArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("usage: %s (n >= 1)", usage)
	}
	return n, nil
}

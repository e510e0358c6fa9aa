package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/creditconsole/internal/client/services"
	"github.com/dmitrijs2005/creditconsole/internal/common"
	"github.com/dmitrijs2005/creditconsole/internal/logging"
)

// App is the interactive console. Commands run one at a time on the REPL
// goroutine; the session-expired callback may run on any goroutine.
type App struct {
	authService services.AuthService
	listService services.ListService
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	mu       sync.Mutex
	userName string
	view     *services.ListView
}

func NewApp(as services.AuthService, ls services.ListService, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		authService: as,
		listService: ls,
		log:         log,
		reader:      bufio.NewReader(in),
		out:         out,
	}
}

// Run restores a saved session, if any, and blocks in the REPL until the
// user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Credit console (type 'help' for commands)")

	user, err := a.authService.Restore(ctx)
	switch {
	case err == nil:
		a.setUser(user.Username)
		fmt.Fprintf(a.out, "Resumed session for %s\n", user.Username)
	case errors.Is(err, common.ErrNotLoggedIn):
	default:
		a.log.Warn(ctx, "failed to restore session", "error", err)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// OnSessionExpired drops the console back to the logged-out prompt. It is
// registered with the HTTP client.
func (a *App) OnSessionExpired(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = ""
	a.view = nil
	a.log.Info(ctx, "console returned to login prompt")
}

func (a *App) isLoggedIn() bool {
	return a.authService.LoggedIn()
}

func (a *App) setUser(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = name
}

func (a *App) currentView() *services.ListView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.userName
	if a.view != nil {
		if s != "" {
			s += " "
		}
		s += a.view.Resource.Name
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

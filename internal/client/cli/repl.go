package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Validate(ctx context.Context) error
	Use(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Page(ctx context.Context, args []string) error
	Step(ctx context.Context, delta int) error
	Size(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Filter(ctx context.Context, args []string) error
	Clear(ctx context.Context) error
	Refresh(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, exit"
	helpLoggedIn  = "Available commands: use <resource>, (l)ist, page <n>, next, prev, size <n>, " +
		"search [text], filter [<key> <value|all>], clear, refresh, whoami, validate, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the console.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// The loop exits on scanner EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help           — show available commands
//	  - login          — authenticate
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - use <resource> — open users, students, teachers, activities or applications
//	  - list           — reprint the current page
//	  - page <n>       — go to page n
//	  - next | prev    — move one page
//	  - size <n>       — change page size, back to page 1
//	  - search [text]  — set or clear the search text
//	  - filter k v     — set a filter, "all" removes it; no args shows criteria
//	  - clear          — reset search and filters
//	  - refresh        — reload the current page
//	  - whoami         — show the local session
//	  - validate       — ask the server about the token
//	  - logout         — log out
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cc %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		}

		if !a.isLoggedIn() {
			if cmd == "login" {
				_ = a.Login(ctx)
			} else {
				printlnFn("Please log in first (type 'login')")
			}
			continue
		}

		switch cmd {
		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "validate":
			_ = a.Validate(ctx)
		case "use":
			_ = a.Use(ctx, args)
		case "l", "list":
			_ = a.List(ctx)
		case "page":
			_ = a.Page(ctx, args)
		case "next", "n":
			_ = a.Step(ctx, 1)
		case "prev", "p":
			_ = a.Step(ctx, -1)
		case "size":
			_ = a.Size(ctx, args)
		case "search":
			_ = a.Search(ctx, args)
		case "filter":
			_ = a.Filter(ctx, args)
		case "clear":
			_ = a.Clear(ctx)
		case "refresh", "r":
			_ = a.Refresh(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// Package notify turns failed API calls into user-facing messages.
//
// Message is a pure mapping from (status, payload) to text; Notifier is the
// side-effecting "show it" half. Neither ever decides control flow.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// StatusNoResponse is passed to Message when the request never got a response.
const StatusNoResponse = 0

// Default messages per failure class.
const (
	MsgSessionExpired = "Your session has expired, please log in again"
	MsgBadCredentials = "Invalid username or password"
	MsgForbidden      = "You do not have permission to perform this action"
	MsgNotFound       = "The requested resource was not found"
	MsgConflict       = "The resource already exists"
	MsgValidation     = "Some fields are invalid"
	MsgRateLimited    = "Too many requests, please try again later"
	MsgServer         = "Server error, please try again later"
	MsgNetwork        = "Network error, please check your connection"
	MsgUnknown        = "Request failed"
)

// Message returns the text to show for a failed call. Field validation
// errors and server-supplied messages in payload take precedence over the
// static table. It never panics; malformed payloads fall back to the table.
func Message(status int, payload []byte) string {
	if msg := payloadMessage(payload); msg != "" {
		return msg
	}
	return defaultMessage(status)
}

func defaultMessage(status int) string {
	switch {
	case status == StatusNoResponse:
		return MsgNetwork
	case status == http.StatusUnauthorized:
		return MsgSessionExpired
	case status == http.StatusForbidden:
		return MsgForbidden
	case status == http.StatusNotFound:
		return MsgNotFound
	case status == http.StatusConflict:
		return MsgConflict
	case status == http.StatusUnprocessableEntity:
		return MsgValidation
	case status == http.StatusTooManyRequests:
		return MsgRateLimited
	case status >= http.StatusInternalServerError:
		return MsgServer
	default:
		return MsgUnknown
	}
}

// errorPayload covers the shapes returned by the API services:
// {"code":409,"message":"..."}, {"error":"..."} and validation payloads with
// "errors" as an object (field → message or messages) or a list.
type errorPayload struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func payloadMessage(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var p errorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	if fields := fieldErrors(p.Errors); fields != "" {
		return fields
	}
	if msg := strings.TrimSpace(p.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(p.Error)
}

// fieldErrors joins validation errors into one line, fields sorted by name.
func fieldErrors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		names := make([]string, 0, len(byField))
		for name := range byField {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			for _, msg := range messages(byField[name]) {
				parts = append(parts, fmt.Sprintf("%s: %s", name, msg))
			}
		}
		return strings.Join(parts, "; ")
	}

	return strings.Join(messages(raw), "; ")
}

// messages decodes a string, a list of strings or a list of
// {"field","message"} objects.
func messages(raw json.RawMessage) []string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one = strings.TrimSpace(one); one != "" {
			return []string{one}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var obj struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Message != "" {
			if obj.Field != "" {
				out = append(out, fmt.Sprintf("%s: %s", obj.Field, obj.Message))
			} else {
				out = append(out, obj.Message)
			}
			continue
		}
		out = append(out, messages(item)...)
	}
	return out
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg string)

func (f Func) Notify(ctx context.Context, msg string) { f(ctx, msg) }

// Discard drops every message.
var Discard Notifier = Func(func(context.Context, string) {})

// Printer writes messages to w, in red when w is a terminal.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	red *color.Color
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, red: color.New(color.FgRed, color.Bold)}
}

func (p *Printer) Notify(_ context.Context, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.red.Fprintf(p.w, "✗ %s\n", msg)
}

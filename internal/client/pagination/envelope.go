package pagination

import (
	"bytes"
	"encoding/json"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
)

// Envelope is one page of a list endpoint. Items is never nil and
// TotalPages is at least 1.
type Envelope[T any] struct {
	Items      []T
	Total      int
	TotalPages int
	Page       int
	PageSize   int
}

type meta struct {
	Total      *int `json:"total"`
	TotalPages *int `json:"total_pages"`
	Page       *int `json:"page"`
	PageSize   *int `json:"page_size"`
}

type pageObject struct {
	meta
	Data       json.RawMessage `json:"data"`
	Pagination *meta           `json:"pagination"`

	// list keys used by services that predate the paginated shape
	Users      json.RawMessage `json:"users"`
	Activities json.RawMessage `json:"activities"`
	Items      json.RawMessage `json:"items"`
}

// Unwrap decodes a list response body. Accepted shapes, inside or outside
// the {code, message, data} envelope:
//
//	[...]
//	{"data": [...], "pagination": {"total": n, "total_pages": n}}
//	{"data": [...], "total": n, "total_pages": n, "page": n, "page_size": n}
//	{"users": [...]} / {"activities": [...]} / {"items": [...]}
//
// Anything else yields an empty page. Unwrap never fails.
func Unwrap[T any](body []byte) Envelope[T] {
	if env, ok := decodePaged[T](body); ok {
		return env
	}

	inner := client.Unwrap(body)
	if items, ok := decodeList[T](inner); ok {
		return single(items)
	}
	if env, ok := decodePaged[T](inner); ok {
		return env
	}

	var obj pageObject
	if json.Unmarshal(inner, &obj) == nil {
		for _, raw := range []json.RawMessage{obj.Users, obj.Activities, obj.Items} {
			if items, ok := decodeList[T](raw); ok {
				return single(items)
			}
		}
	}

	return Envelope[T]{Items: []T{}, TotalPages: 1, Page: 1}
}

// decodePaged matches an object holding a data array next to pagination
// metadata.
func decodePaged[T any](raw []byte) (Envelope[T], bool) {
	var obj pageObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Envelope[T]{}, false
	}

	m := obj.meta
	if obj.Pagination != nil {
		m = *obj.Pagination
	}
	if m.Total == nil && m.TotalPages == nil {
		return Envelope[T]{}, false
	}

	items, ok := decodeList[T](obj.Data)
	if !ok {
		return Envelope[T]{}, false
	}

	env := Envelope[T]{
		Items:    items,
		Total:    deref(m.Total, len(items)),
		Page:     deref(m.Page, 1),
		PageSize: deref(m.PageSize, len(items)),
	}
	env.TotalPages = deref(m.TotalPages, 0)
	if env.TotalPages < 1 {
		env.TotalPages = pageCount(env.Total, env.PageSize)
	}
	return env, true
}

func decodeList[T any](raw json.RawMessage) ([]T, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []T{}
	}
	return items, true
}

func single[T any](items []T) Envelope[T] {
	return Envelope[T]{Items: items, Total: len(items), TotalPages: 1, Page: 1, PageSize: len(items)}
}

func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

func deref(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

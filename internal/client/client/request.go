package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request describes one logical API call.
//
// Body is JSON-encoded on every dispatch, so a request can be replayed
// after a credential refresh; a []byte body is sent as-is.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// retried is set on the replay that follows a credential refresh.
	// A retried request that fails with 401 again ends the session.
	retried bool
}

// Response is a successful (2xx) HTTP response with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Data returns the payload inside the {code, message, data} envelope, or
// the whole body when there is no envelope.
func (r *Response) Data() json.RawMessage {
	return Unwrap(r.Body)
}

// Decode unmarshals the envelope payload into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Data(), v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// Unwrap strips the {code, message, data} envelope used by the API. Bodies
// that are not a JSON object with a "data" key are returned unchanged.
func Unwrap(body []byte) json.RawMessage {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil {
		return body
	}
	return env.Data
}

func (r *Request) encodeBody() (io.Reader, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(raw), nil
	}
}

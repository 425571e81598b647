package handshake

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amoylab/siogate/internal/common/cnst"

	"github.com/goccy/go-json"
)

// CallbackParam is the query parameter that selects callback-wrapped encoding
const CallbackParam = "jsonp"

// Encoding of a handshake response body
type Encoding string

const (
	EncodingRaw   Encoding = "raw"
	EncodingJSONP Encoding = "jsonp"
)

// marshal is swapped in tests to exercise the failure path
var marshal = json.Marshal

// Callback carries the client-side callback slot for callback-wrapped
// responses. A nil *Callback selects the raw encoding.
type Callback struct {
	Index string
}

// ParseCallback extracts the callback index from a raw query string. The index
// must be a non-negative integer and is kept verbatim. A callback key inside a
// pair that does not decode (a ';' separator or a bad escape) is rejected
// rather than ignored.
func ParseCallback(rawQuery string) (*Callback, error) {
	query, err := url.ParseQuery(rawQuery)
	if err != nil && mentionsCallback(rawQuery) {
		return nil, fmt.Errorf("%w: %v", cnst.ErrInvalidCallbackIndex, err)
	}
	if !query.Has(CallbackParam) {
		return nil, nil
	}
	index := query.Get(CallbackParam)
	if _, err := strconv.ParseUint(index, 10, 32); err != nil {
		return nil, fmt.Errorf("%w: %q", cnst.ErrInvalidCallbackIndex, index)
	}
	return &Callback{Index: index}, nil
}

// mentionsCallback reports whether any '&' or ';' separated pair of rawQuery
// has the callback key
func mentionsCallback(rawQuery string) bool {
	pairs := strings.FieldsFunc(rawQuery, func(r rune) bool { return r == '&' || r == ';' })
	for _, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if key == CallbackParam {
			return true
		}
	}
	return false
}

// Response is a fully rendered handshake answer
type Response struct {
	Encoding    Encoding
	ContentType string
	Body        []byte
}

// Render formats payload for the wire. With a callback the payload is encoded
// as a JSON string literal inside io.j[<index>](...);
func Render(payload string, cb *Callback) (*Response, error) {
	if cb == nil {
		return &Response{
			Encoding:    EncodingRaw,
			ContentType: cnst.ContentTypePlain,
			Body:        []byte(payload),
		}, nil
	}

	literal, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cnst.ErrEncodePayload, err)
	}
	body := make([]byte, 0, len(literal)+len(cb.Index)+8)
	body = append(body, "io.j["...)
	body = append(body, cb.Index...)
	body = append(body, "]("...)
	body = append(body, literal...)
	body = append(body, ");"...)
	return &Response{
		Encoding:    EncodingJSONP,
		ContentType: cnst.ContentTypeJavascript,
		Body:        body,
	}, nil
}

// WriteHeaders sets the response headers for resp. The request Origin, when
// present, is echoed back with credentials allowed.
func WriteHeaders(h http.Header, origin string, resp *Response) {
	h.Set("Content-Type", resp.ContentType)
	h.Set("Connection", "keep-alive")
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	if origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

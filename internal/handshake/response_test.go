package handshake

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	cb, err := ParseCallback("")
	require.NoError(t, err)
	assert.Nil(t, cb)

	cb, err = ParseCallback("jsonp=3&t=1700000000")
	require.NoError(t, err)
	assert.Equal(t, &Callback{Index: "3"}, cb)

	// kept verbatim
	cb, err = ParseCallback("jsonp=007")
	require.NoError(t, err)
	assert.Equal(t, "007", cb.Index)

	// undecodable pairs without the callback key are ignored
	cb, err = ParseCallback("t=1;2&x=%zz")
	require.NoError(t, err)
	assert.Nil(t, cb)

	for _, bad := range []string{
		"jsonp=", "jsonp=-1", "jsonp=alert(1)", "jsonp=1.5",
		"jsonp=3;x", "jsonp=1);alert(1", "t=1&jsonp=%zz", "js%6Fnp=1;x", "x=1;jsonp=2",
	} {
		_, err := ParseCallback(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, cnst.ErrInvalidCallbackIndex), bad)
	}
}

func TestRender_Raw(t *testing.T) {
	resp, err := Render("abc:20:25:websocket", nil)
	require.NoError(t, err)
	assert.Equal(t, EncodingRaw, resp.Encoding)
	assert.Equal(t, "text/plain; charset=UTF-8", resp.ContentType)
	assert.Equal(t, "abc:20:25:websocket", string(resp.Body))
}

func TestRender_JSONP(t *testing.T) {
	payload := "0f8fad5b-d9cb-469f-a165-70867728950e:20:25:xhr-polling,websocket"
	resp, err := Render(payload, &Callback{Index: "3"})
	require.NoError(t, err)
	assert.Equal(t, EncodingJSONP, resp.Encoding)
	assert.Equal(t, "application/javascript", resp.ContentType)
	assert.Equal(t, `io.j[3]("`+payload+`");`, string(resp.Body))
}

func TestRender_JSONPRoundTrip(t *testing.T) {
	payloads := []string{
		`plain`,
		`quote"inside`,
		`back\slash`,
		"new\nline\ttab",
		"unicode ✓ and \u2028 separator",
		"</script><script>",
	}
	for _, p := range payloads {
		resp, err := Render(p, &Callback{Index: "12"})
		require.NoError(t, err)

		body := string(resp.Body)
		require.True(t, strings.HasPrefix(body, "io.j[12]("), body)
		require.True(t, strings.HasSuffix(body, ");"), body)
		literal := strings.TrimSuffix(strings.TrimPrefix(body, "io.j[12]("), ");")

		var decoded string
		require.NoError(t, json.Unmarshal([]byte(literal), &decoded))
		assert.Equal(t, p, decoded)
		assert.NotContains(t, literal, "\n")
	}
}

func TestRender_EncodeFailure(t *testing.T) {
	orig := marshal
	t.Cleanup(func() { marshal = orig })
	marshal = func(any) ([]byte, error) { return nil, errors.New("boom") }

	resp, err := Render("x", &Callback{Index: "0"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cnst.ErrEncodePayload))

	// raw encoding does not serialize
	_, err = Render("x", nil)
	assert.NoError(t, err)
}

func TestWriteHeaders(t *testing.T) {
	resp := &Response{ContentType: cnst.ContentTypePlain, Body: []byte("sid:✓")}

	h := http.Header{}
	WriteHeaders(h, "", resp)
	assert.Equal(t, cnst.ContentTypePlain, h.Get("Content-Type"))
	assert.Equal(t, "keep-alive", h.Get("Connection"))
	assert.Equal(t, strconv.Itoa(len("sid:✓")), h.Get("Content-Length"))
	assert.Equal(t, "7", h.Get("Content-Length"))
	assert.Empty(t, h.Values("Access-Control-Allow-Origin"))
	assert.Empty(t, h.Values("Access-Control-Allow-Credentials"))

	h = http.Header{}
	WriteHeaders(h, "http://a.example", resp)
	assert.Equal(t, "http://a.example", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
	assert.Len(t, h.Values("Content-Type"), 1)
}

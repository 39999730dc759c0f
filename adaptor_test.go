package http2

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestRequestHeaderFields(t *testing.T) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI("https://example.com/search?q=x")
	req.Header.SetMethod("POST")
	req.Header.SetUserAgent("h2core-test")
	req.Header.Set("X-Trace-Id", "abc123")

	hfs := RequestHeaderFields(req)
	defer ReleaseHeaderFields(hfs)

	byKey := map[string]string{}
	for _, hf := range hfs {
		byKey[hf.Key()] = hf.Value()
	}

	require.Equal(t, "example.com", byKey[":authority"])
	require.Equal(t, "POST", byKey[":method"])
	require.Equal(t, "/search?q=x", byKey[":path"])
	require.Equal(t, "https", byKey[":scheme"])
	require.Equal(t, "h2core-test", byKey["user-agent"])
	require.Equal(t, "abc123", byKey["x-trace-id"])
}

func TestFillResponse(t *testing.T) {
	c, _ := newTestConn(ConnOpts{})
	strm := c.CreateStream(1)
	strm.state = StreamStateHalfClosedLocal

	require.NoError(t, strm.ReceiveHeaders(wireHeaders(t, 1, false,
		":status", "201",
		"content-length", "7",
		"x-served-by", "h2core",
	)))
	require.NoError(t, strm.ReceiveData(wireData(t, 1, "created", true)))

	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(res)

	require.NoError(t, strm.FillResponse(res))

	require.Equal(t, 201, res.StatusCode())
	require.Equal(t, "created", string(res.Body()))
	require.Equal(t, "h2core", string(res.Header.Peek("x-served-by")))
}

func TestFillResponseBadStatus(t *testing.T) {
	c, _ := newTestConn(ConnOpts{})
	strm := c.CreateStream(1)
	strm.state = StreamStateHalfClosedLocal

	require.NoError(t, strm.ReceiveHeaders(wireHeaders(t, 1, true, ":status", "abc")))

	res := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(res)

	require.Error(t, strm.FillResponse(res))
}

package http2

import (
	"bytes"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/domsolutions/h2core/http2utils"
)

// RequestHeaderFields builds the field list for req: the request
// pseudo-header fields first, then every regular header lowercased.
//
// Release the returned fields with ReleaseHeaderFields.
func RequestHeaderFields(req *fasthttp.Request) []*HeaderField {
	hfs := make([]*HeaderField, 0, 8)

	appendField := func(k, v []byte) {
		hf := AcquireHeaderField()
		hf.SetBytes(k, v)
		hfs = append(hfs, hf)
	}

	appendField(StringAuthority, req.URI().Host())
	appendField(StringMethod, req.Header.Method())
	appendField(StringPath, req.URI().RequestURI())
	appendField(StringScheme, req.URI().Scheme())
	appendField(StringUserAgent, req.Header.UserAgent())

	req.Header.VisitAll(func(k, v []byte) {
		if bytes.EqualFold(k, StringUserAgent) {
			return
		}

		appendField(http2utils.ToLower(append([]byte(nil), k...)), v)
	})

	return hfs
}

// FillResponse fills res from the stream's captured header field list
// and DATA payload, mapping :status and content-length the way the
// request path expects them.
func (s *Stream) FillResponse(res *fasthttp.Response) error {
	for _, hf := range s.Headers() {
		if hf.IsPseudo() {
			if !bytes.Equal(hf.KeyBytes(), StringStatus) {
				continue
			}

			code, err := strconv.Atoi(hf.Value())
			if err != nil {
				return NewError(ProtocolError, "malformed :status: "+hf.Value())
			}

			res.SetStatusCode(code)
			continue
		}

		if bytes.Equal(hf.KeyBytes(), StringContentLength) {
			n, _ := strconv.Atoi(hf.Value())
			res.Header.SetContentLength(n)
		} else {
			res.Header.AddBytesKV(hf.KeyBytes(), hf.ValueBytes())
		}
	}

	if data := s.Data(); len(data) != 0 {
		res.AppendBody(data)
	}

	return nil
}

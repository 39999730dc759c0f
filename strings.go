package http2

var (
	StringPath          = []byte(":path")
	StringStatus        = []byte(":status")
	StringAuthority     = []byte(":authority")
	StringScheme        = []byte(":scheme")
	StringMethod        = []byte(":method")
	StringContentLength = []byte("content-length")
	StringUserAgent     = []byte("user-agent")
)

package http2

const FrameContinuation FrameType = 0x9

var (
	_ Frame            = &Continuation{}
	_ FrameWithHeaders = &Continuation{}
)

// Continuation ...
//
// https://tools.ietf.org/html/rfc7540#section-6.10
type Continuation struct {
	endHeaders bool
	header     []byte // header block fragment
}

func (c *Continuation) Type() FrameType {
	return FrameContinuation
}

func (c *Continuation) Reset() {
	c.endHeaders = false
	c.header = c.header[:0]
}

// Headers returns the header block fragment.
func (c *Continuation) Headers() []byte {
	return c.header
}

// SetHeaders ...
func (c *Continuation) SetHeaders(b []byte) {
	c.header = append(c.header[:0], b...)
}

// AppendHeaders appends b to the header block fragment.
func (c *Continuation) AppendHeaders(b []byte) {
	c.header = append(c.header, b...)
}

// EndHeaders ...
func (c *Continuation) EndHeaders() bool {
	return c.endHeaders
}

// SetEndHeaders ...
func (c *Continuation) SetEndHeaders(value bool) {
	c.endHeaders = value
}

// Write writes b to the header block fragment.
func (c *Continuation) Write(b []byte) (int, error) {
	n := len(b)
	c.AppendHeaders(b)
	return n, nil
}

func (c *Continuation) Deserialize(frh *FrameHeader) error {
	c.endHeaders = frh.Flags().Has(FlagEndHeaders)
	c.header = append(c.header[:0], frh.payload...)
	return nil
}

func (c *Continuation) Serialize(frh *FrameHeader) {
	if c.endHeaders {
		frh.SetFlags(
			frh.Flags().Add(FlagEndHeaders))
	}

	frh.setPayload(c.header)
}

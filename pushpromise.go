package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FramePushPromise FrameType = 0x5

var _ Frame = &PushPromise{}

// PushPromise https://tools.ietf.org/html/rfc7540#section-6.6
type PushPromise struct {
	pad        bool
	endHeaders bool
	stream     uint32 // promised stream id
	header     []byte // header block fragment
}

func (pp *PushPromise) Type() FrameType {
	return FramePushPromise
}

func (pp *PushPromise) Reset() {
	pp.pad = false
	pp.endHeaders = false
	pp.stream = 0
	pp.header = pp.header[:0]
}

// PromisedStream returns the id of the stream this frame reserves.
func (pp *PushPromise) PromisedStream() uint32 {
	return pp.stream
}

// SetPromisedStream ...
func (pp *PushPromise) SetPromisedStream(stream uint32) {
	pp.stream = stream & (1<<31 - 1)
}

// EndHeaders ...
func (pp *PushPromise) EndHeaders() bool {
	return pp.endHeaders
}

// SetEndHeaders ...
func (pp *PushPromise) SetEndHeaders(value bool) {
	pp.endHeaders = value
}

// Headers returns the promised request's header block fragment.
func (pp *PushPromise) Headers() []byte {
	return pp.header
}

// SetHeaders ...
func (pp *PushPromise) SetHeaders(h []byte) {
	pp.header = append(pp.header[:0], h...)
}

func (pp *PushPromise) Write(b []byte) (int, error) {
	n := len(b)
	pp.header = append(pp.header, b...)
	return n, nil
}

func (pp *PushPromise) Deserialize(frh *FrameHeader) error {
	payload := frh.payload

	if frh.Flags().Has(FlagPadded) {
		var ok bool
		payload, ok = http2utils.CutPadding(payload, frh.Len())
		if !ok {
			return ErrPadLength
		}
	}

	if len(payload) < 4 {
		return ErrMissingBytes
	}

	pp.stream = http2utils.BytesToUint32(payload) & (1<<31 - 1)
	pp.header = append(pp.header[:0], payload[4:]...)
	pp.endHeaders = frh.Flags().Has(FlagEndHeaders)

	return nil
}

func (pp *PushPromise) Serialize(frh *FrameHeader) {
	if pp.endHeaders {
		frh.SetFlags(
			frh.Flags().Add(FlagEndHeaders))
	}

	frh.payload = http2utils.AppendUint32Bytes(frh.payload[:0], pp.stream)
	frh.payload = append(frh.payload, pp.header...)
}

package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FrameHeaders FrameType = 0x1

var (
	_ Frame            = &Headers{}
	_ FrameWithHeaders = &Headers{}
)

// FrameWithHeaders is implemented by frames carrying a header block fragment.
type FrameWithHeaders interface {
	Headers() []byte
}

// Headers defines a FrameHeaders
//
// https://tools.ietf.org/html/rfc7540#section-6.2
type Headers struct {
	hasPadding  bool
	hasPriority bool
	stream      uint32 // stream dependency
	exclusive   bool
	weight      uint8
	endStream   bool
	endHeaders  bool
	rawHeaders  []byte // header block fragment
}

// Reset ...
func (h *Headers) Reset() {
	h.hasPadding = false
	h.hasPriority = false
	h.stream = 0
	h.exclusive = false
	h.weight = 0
	h.endStream = false
	h.endHeaders = false
	h.rawHeaders = h.rawHeaders[:0]
}

// CopyTo copies h fields to h2.
func (h *Headers) CopyTo(h2 *Headers) {
	h2.hasPadding = h.hasPadding
	h2.hasPriority = h.hasPriority
	h2.stream = h.stream
	h2.exclusive = h.exclusive
	h2.weight = h.weight
	h2.endStream = h.endStream
	h2.endHeaders = h.endHeaders
	h2.rawHeaders = append(h2.rawHeaders[:0], h.rawHeaders...)
}

func (h *Headers) Type() FrameType {
	return FrameHeaders
}

// Headers returns the raw header block fragment.
func (h *Headers) Headers() []byte {
	return h.rawHeaders
}

// SetHeaders sets the raw header block fragment.
func (h *Headers) SetHeaders(b []byte) {
	h.rawHeaders = append(h.rawHeaders[:0], b...)
}

// AppendRawHeaders appends b to the raw headers.
func (h *Headers) AppendRawHeaders(b []byte) {
	h.rawHeaders = append(h.rawHeaders, b...)
}

// EndStream ...
func (h *Headers) EndStream() bool {
	return h.endStream
}

// SetEndStream ...
func (h *Headers) SetEndStream(value bool) {
	h.endStream = value
}

// EndHeaders ...
func (h *Headers) EndHeaders() bool {
	return h.endHeaders
}

// SetEndHeaders ...
func (h *Headers) SetEndHeaders(value bool) {
	h.endHeaders = value
}

// HasPriority returns whether the frame carries a priority block.
func (h *Headers) HasPriority() bool {
	return h.hasPriority
}

// Stream returns the stream this frame's stream depends on.
func (h *Headers) Stream() uint32 {
	return h.stream
}

// SetStream sets the stream dependency and marks the priority block present.
func (h *Headers) SetStream(stream uint32) {
	h.hasPriority = true
	h.stream = stream & (1<<31 - 1)
}

// Exclusive ...
func (h *Headers) Exclusive() bool {
	return h.exclusive
}

// SetExclusive ...
func (h *Headers) SetExclusive(value bool) {
	h.hasPriority = true
	h.exclusive = value
}

// Weight ...
func (h *Headers) Weight() byte {
	return h.weight
}

// SetWeight ...
func (h *Headers) SetWeight(w byte) {
	h.hasPriority = true
	h.weight = w
}

// Padding ...
func (h *Headers) Padding() bool {
	return h.hasPadding
}

// SetPadding ...
func (h *Headers) SetPadding(value bool) {
	h.hasPadding = value
}

func (h *Headers) Deserialize(frh *FrameHeader) (err error) {
	flags := frh.Flags()
	payload := frh.payload

	if flags.Has(FlagPadded) {
		var ok bool
		payload, ok = http2utils.CutPadding(payload, frh.Len())
		if !ok {
			return ErrPadLength
		}
	}

	if flags.Has(FlagPriority) {
		if len(payload) < 5 { // 4 (dependency) + 1 (weight)
			return ErrMissingBytes
		}

		h.hasPriority = true
		h.exclusive = payload[0]&0x80 != 0
		h.stream = http2utils.BytesToUint32(payload) & (1<<31 - 1)
		h.weight = payload[4]
		payload = payload[5:]
	}

	h.endStream = flags.Has(FlagEndStream)
	h.endHeaders = flags.Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)

	return
}

func (h *Headers) Serialize(frh *FrameHeader) {
	if h.endStream {
		frh.SetFlags(
			frh.Flags().Add(FlagEndStream))
	}

	if h.endHeaders {
		frh.SetFlags(
			frh.Flags().Add(FlagEndHeaders))
	}

	frh.payload = frh.payload[:0]

	if h.hasPriority {
		frh.SetFlags(
			frh.Flags().Add(FlagPriority))

		dep := h.stream
		if h.exclusive {
			dep |= 1 << 31
		}

		frh.payload = http2utils.AppendUint32Bytes(frh.payload, dep)
		frh.payload = append(frh.payload, h.weight)
	}

	frh.payload = append(frh.payload, h.rawHeaders...)

	if h.hasPadding {
		frh.SetFlags(
			frh.Flags().Add(FlagPadded))
		frh.payload = http2utils.AddPadding(frh.payload)
	}
}

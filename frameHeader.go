package http2

import (
	"bufio"
	"io"
	"sync"

	"github.com/domsolutions/h2core/http2utils"
)

const (
	// DefaultFrameSize is the size of the fixed frame header.
	//
	// http://httpwg.org/specs/rfc7540.html#FrameHeader
	DefaultFrameSize = 9
	// https://httpwg.org/specs/rfc7540.html#SETTINGS_MAX_FRAME_SIZE
	defaultMaxLen = 1 << 14

	// Frame Flag (described along the frame types)
	FlagAck        FrameFlags = 0x1
	FlagEndStream  FrameFlags = 0x1
	FlagEndHeaders FrameFlags = 0x4
	FlagPadded     FrameFlags = 0x8
	FlagPriority   FrameFlags = 0x20
)

var frameHeaderPool = sync.Pool{
	New: func() interface{} {
		return &FrameHeader{}
	},
}

// FrameHeader is the fixed 9-octet header every frame carries plus the
// decoded frame body.
//
// Use AcquireFrameHeader instead of creating FrameHeader every time
// and ReleaseFrameHeader when done.
//
// FrameHeader instance MUST NOT be used from different goroutines.
//
// https://tools.ietf.org/html/rfc7540#section-4.1
type FrameHeader struct {
	length int        // 24 bits
	kind   FrameType  // 8 bits
	flags  FrameFlags // 8 bits
	stream uint32     // 31 bits

	maxLen uint32

	rawHeader [DefaultFrameSize]byte
	payload   []byte

	fr Frame
}

// AcquireFrameHeader gets a FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	frh := frameHeaderPool.Get().(*FrameHeader)
	frh.Reset()
	return frh
}

// ReleaseFrameHeader resets and puts frh and its body to the pools.
func ReleaseFrameHeader(frh *FrameHeader) {
	ReleaseFrame(frh.Body())
	frameHeaderPool.Put(frh)
}

// Reset resets header values.
func (frh *FrameHeader) Reset() {
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.length = 0
	frh.maxLen = defaultMaxLen
	frh.fr = nil
	frh.payload = frh.payload[:0]
}

// Type returns the frame type (https://httpwg.org/specs/rfc7540.html#Frame_types)
func (frh *FrameHeader) Type() FrameType {
	return frh.kind
}

// Flags ...
func (frh *FrameHeader) Flags() FrameFlags {
	return frh.flags
}

func (frh *FrameHeader) SetFlags(flags FrameFlags) {
	frh.flags = flags
}

// Stream returns the stream id of the current frame.
func (frh *FrameHeader) Stream() uint32 {
	return frh.stream
}

// SetStream sets the stream id on the current frame.
//
// This function DOESN'T delete the reserved bit (first bit)
// in order to support personalized implementations of the protocol.
func (frh *FrameHeader) SetStream(stream uint32) {
	frh.stream = stream
}

// Len returns the payload length.
func (frh *FrameHeader) Len() int {
	return frh.length
}

// MaxLen returns the maximum negotiated payload length.
func (frh *FrameHeader) MaxLen() uint32 {
	return frh.maxLen
}

// SetMaxLen sets the maximum payload length ReadFrom accepts.
func (frh *FrameHeader) SetMaxLen(maxLen uint32) {
	frh.maxLen = maxLen
}

// Body returns the decoded frame this header carries.
func (frh *FrameHeader) Body() Frame {
	return frh.fr
}

// SetBody sets the frame body and the frame type accordingly.
func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("Body cannot be nil")
	}

	frh.kind = fr.Type()
	frh.fr = fr
}

func (frh *FrameHeader) parseValues(header []byte) {
	frh.length = int(http2utils.BytesToUint24(header[:3]))          // 3
	frh.kind = FrameType(header[3])                                 // 1
	frh.flags = FrameFlags(header[4])                               // 1
	frh.stream = http2utils.BytesToUint32(header[5:]) & (1<<31 - 1) // 4
}

func (frh *FrameHeader) packHeader(header []byte) {
	http2utils.Uint24ToBytes(header[:3], uint32(frh.length)) // 3
	header[3] = byte(frh.kind)                               // 1
	header[4] = byte(frh.flags)                              // 1
	http2utils.Uint32ToBytes(header[5:], frh.stream)         // 4
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > int(frh.maxLen) {
		return ErrPayloadExceeds
	}
	return nil
}

func (frh *FrameHeader) setPayload(payload []byte) {
	frh.payload = append(frh.payload[:0], payload...)
}

// ReadFrameFrom reads the next frame from br.
//
// The returned FrameHeader must be released with ReleaseFrameHeader.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	frh := AcquireFrameHeader()

	_, err := frh.ReadFrom(br)
	if err != nil {
		if frh.Body() != nil {
			ReleaseFrameHeader(frh)
		} else {
			frameHeaderPool.Put(frh)
		}

		frh = nil
	}

	return frh, err
}

// ReadFrameFromWithSize reads the next frame from br enforcing max as the
// maximum accepted payload length.
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	_, err := frh.ReadFrom(br)
	if err != nil {
		if frh.Body() != nil {
			ReleaseFrameHeader(frh)
		} else {
			frameHeaderPool.Put(frh)
		}

		frh = nil
	}

	return frh, err
}

// ReadFrom reads a frame from br.
//
// Unlike io.ReaderFrom this method does not read until io.EOF.
func (frh *FrameHeader) ReadFrom(br *bufio.Reader) (int64, error) {
	header, err := br.Peek(DefaultFrameSize)
	if err != nil {
		return -1, err
	}

	br.Discard(DefaultFrameSize)

	rn := int64(DefaultFrameSize)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		return rn, err
	}

	if frh.kind < FrameData || frh.kind > FrameContinuation {
		br.Discard(frh.length)
		return rn, ErrUnknowFrameType
	}

	frh.fr = AcquireFrame(frh.kind)

	if frh.length > 0 {
		frh.payload = http2utils.Resize(frh.payload, frh.length)

		n, err := io.ReadFull(br, frh.payload)
		rn += int64(n)
		if err != nil {
			return rn, err
		}
	}

	return rn, frh.fr.Deserialize(frh)
}

// WriteTo serializes the body and writes the frame to w.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (wb int64, err error) {
	frh.fr.Serialize(frh)

	frh.length = len(frh.payload)
	frh.packHeader(frh.rawHeader[:])

	n, err := w.Write(frh.rawHeader[:])
	if err == nil {
		wb += int64(n)

		n, err = w.Write(frh.payload)
		wb += int64(n)
	}

	return wb, err
}

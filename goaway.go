package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FrameGoAway FrameType = 0x7

var _ Frame = &GoAway{}

// GoAway ...
//
// https://tools.ietf.org/html/rfc7540#section-6.8
type GoAway struct {
	stream uint32 // last stream id
	code   ErrorCode
	debug  []byte
}

func (ga *GoAway) Type() FrameType {
	return FrameGoAway
}

func (ga *GoAway) Reset() {
	ga.stream = 0
	ga.code = 0
	ga.debug = ga.debug[:0]
}

// CopyTo ...
func (ga *GoAway) CopyTo(g *GoAway) {
	g.stream = ga.stream
	g.code = ga.code
	g.debug = append(g.debug[:0], ga.debug...)
}

// Code ...
func (ga *GoAway) Code() ErrorCode {
	return ga.code
}

// SetCode ...
func (ga *GoAway) SetCode(code ErrorCode) {
	ga.code = code
}

// Stream returns the last stream id processed by the sender.
func (ga *GoAway) Stream() uint32 {
	return ga.stream
}

// SetStream ...
func (ga *GoAway) SetStream(stream uint32) {
	ga.stream = stream & (1<<31 - 1)
}

// Debug returns the additional debug data.
func (ga *GoAway) Debug() []byte {
	return ga.debug
}

// SetDebug ...
func (ga *GoAway) SetDebug(b []byte) {
	ga.debug = append(ga.debug[:0], b...)
}

func (ga *GoAway) Error() string {
	return ga.code.String() + ": " + string(ga.debug)
}

func (ga *GoAway) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return ErrMissingBytes
	}

	ga.stream = http2utils.BytesToUint32(frh.payload) & (1<<31 - 1)
	ga.code = ErrorCode(http2utils.BytesToUint32(frh.payload[4:]))
	ga.debug = append(ga.debug[:0], frh.payload[8:]...)

	return nil
}

func (ga *GoAway) Serialize(frh *FrameHeader) {
	frh.payload = http2utils.AppendUint32Bytes(frh.payload[:0], ga.stream)
	frh.payload = http2utils.AppendUint32Bytes(frh.payload, uint32(ga.code))
	frh.payload = append(frh.payload, ga.debug...)
}

package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FrameResetStream FrameType = 0x3

var _ Frame = &RstStream{}

// RstStream ...
//
// https://tools.ietf.org/html/rfc7540#section-6.4
type RstStream struct {
	code ErrorCode
}

func (rst *RstStream) Type() FrameType {
	return FrameResetStream
}

// Code ...
func (rst *RstStream) Code() ErrorCode {
	return rst.code
}

// SetCode ...
func (rst *RstStream) SetCode(code ErrorCode) {
	rst.code = code
}

// Reset ...
func (rst *RstStream) Reset() {
	rst.code = 0
}

// CopyTo ...
func (rst *RstStream) CopyTo(r *RstStream) {
	r.code = rst.code
}

// Error returns the frame's code as an Error.
func (rst *RstStream) Error() error {
	return NewError(rst.code, "")
}

func (rst *RstStream) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return ErrMissingBytes
	}

	rst.code = ErrorCode(http2utils.BytesToUint32(frh.payload))

	return nil
}

func (rst *RstStream) Serialize(frh *FrameHeader) {
	frh.payload = http2utils.AppendUint32Bytes(frh.payload[:0], uint32(rst.code))
}

package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FrameWindowUpdate FrameType = 0x8

var _ Frame = &WindowUpdate{}

// WindowUpdate ...
//
// https://tools.ietf.org/html/rfc7540#section-6.9
type WindowUpdate struct {
	increment uint32
}

func (wu *WindowUpdate) Type() FrameType {
	return FrameWindowUpdate
}

// Reset ...
func (wu *WindowUpdate) Reset() {
	wu.increment = 0
}

// CopyTo ...
func (wu *WindowUpdate) CopyTo(w *WindowUpdate) {
	w.increment = wu.increment
}

// Increment ...
func (wu *WindowUpdate) Increment() uint32 {
	return wu.increment
}

// SetIncrement ...
func (wu *WindowUpdate) SetIncrement(increment uint32) {
	wu.increment = increment & (1<<31 - 1)
}

func (wu *WindowUpdate) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		wu.increment = 0
		return ErrMissingBytes
	}

	wu.increment = http2utils.BytesToUint32(frh.payload) & (1<<31 - 1)

	return nil
}

func (wu *WindowUpdate) Serialize(frh *FrameHeader) {
	frh.payload = http2utils.AppendUint32Bytes(frh.payload[:0], wu.increment)
}

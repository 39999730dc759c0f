package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FramePriority FrameType = 0x2

var _ Frame = &Priority{}

// Priority represents the Priority frame.
//
// https://tools.ietf.org/html/rfc7540#section-6.3
type Priority struct {
	stream    uint32 // stream dependency
	exclusive bool
	weight    byte
}

func (pry *Priority) Type() FrameType {
	return FramePriority
}

// Reset resets priority fields.
func (pry *Priority) Reset() {
	pry.stream = 0
	pry.exclusive = false
	pry.weight = 0
}

func (pry *Priority) CopyTo(p *Priority) {
	p.stream = pry.stream
	p.exclusive = pry.exclusive
	p.weight = pry.weight
}

// Stream returns the stream dependency.
func (pry *Priority) Stream() uint32 {
	return pry.stream
}

// SetStream sets the stream dependency.
func (pry *Priority) SetStream(stream uint32) {
	pry.stream = stream & (1<<31 - 1)
}

// Exclusive returns whether the dependency is exclusive.
func (pry *Priority) Exclusive() bool {
	return pry.exclusive
}

// SetExclusive ...
func (pry *Priority) SetExclusive(value bool) {
	pry.exclusive = value
}

// Weight returns the Priority frame weight.
func (pry *Priority) Weight() byte {
	return pry.weight
}

// SetWeight sets the Priority frame weight.
func (pry *Priority) SetWeight(w byte) {
	pry.weight = w
}

func (pry *Priority) Deserialize(frh *FrameHeader) (err error) {
	if len(frh.payload) < 5 {
		err = ErrMissingBytes
	} else {
		pry.exclusive = frh.payload[0]&0x80 != 0
		pry.stream = http2utils.BytesToUint32(frh.payload) & (1<<31 - 1)
		pry.weight = frh.payload[4]
	}

	return
}

func (pry *Priority) Serialize(frh *FrameHeader) {
	dep := pry.stream
	if pry.exclusive {
		dep |= 1 << 31
	}

	frh.payload = http2utils.AppendUint32Bytes(frh.payload[:0], dep)
	frh.payload = append(frh.payload, pry.weight)
}

package http2

const FramePing FrameType = 0x6

var _ Frame = &Ping{}

// Ping ...
//
// https://tools.ietf.org/html/rfc7540#section-6.7
type Ping struct {
	ack bool
	b   [8]byte
}

func (p *Ping) Type() FrameType {
	return FramePing
}

func (p *Ping) Reset() {
	p.ack = false
	p.b = [8]byte{}
}

// CopyTo ...
func (p *Ping) CopyTo(p2 *Ping) {
	p2.ack = p.ack
	p2.b = p.b
}

// IsAck returns true if the frame is an acknowledgement.
func (p *Ping) IsAck() bool {
	return p.ack
}

// SetAck ...
func (p *Ping) SetAck(ack bool) {
	p.ack = ack
}

// Data returns the ping's opaque data.
func (p *Ping) Data() []byte {
	return p.b[:]
}

// SetData ...
func (p *Ping) SetData(b []byte) {
	copy(p.b[:], b)
}

func (p *Ping) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return ErrMissingBytes
	}

	p.ack = frh.Flags().Has(FlagAck)
	copy(p.b[:], frh.payload)

	return nil
}

func (p *Ping) Serialize(frh *FrameHeader) {
	if p.ack {
		frh.SetFlags(
			frh.Flags().Add(FlagAck))
	}

	frh.payload = append(frh.payload[:0], p.b[:]...)
}

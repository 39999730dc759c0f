package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FrameSettings FrameType = 0x4

var _ Frame = &Settings{}

const (
	// default Settings parameters
	defaultHeaderTableSize   uint32 = 4096
	defaultConcurrentStreams uint32 = 100
	defaultWindowSize        uint32 = 1<<16 - 1
	defaultMaxFrameSize      uint32 = 1 << 14

	maxWindowSize = 1<<31 - 1

	// Settings identifiers (https://httpwg.org/specs/rfc7540.html#SettingValues)
	HeaderTableSize      uint16 = 0x1
	EnablePush           uint16 = 0x2
	MaxConcurrentStreams uint16 = 0x3
	InitialWindowSize    uint16 = 0x4
	MaxFrameSize         uint16 = 0x5
	MaxHeaderListSize    uint16 = 0x6
)

// Settings is the SETTINGS frame and, at the same time, the record of the
// options negotiated between the endpoints.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack            bool
	tableSize      uint32
	enablePush     bool
	maxStreams     uint32
	windowSize     uint32
	frameSize      uint32
	headerListSize uint32
}

func (st *Settings) Type() FrameType {
	return FrameSettings
}

// Reset resets the settings to their RFC defaults.
func (st *Settings) Reset() {
	st.ack = false
	st.tableSize = defaultHeaderTableSize
	st.enablePush = false
	st.maxStreams = defaultConcurrentStreams
	st.windowSize = defaultWindowSize
	st.frameSize = defaultMaxFrameSize
	st.headerListSize = 0
}

// CopyTo copies st fields to st2.
func (st *Settings) CopyTo(st2 *Settings) {
	*st2 = *st
}

// HeaderTableSize ...
func (st *Settings) HeaderTableSize() uint32 {
	return st.tableSize
}

// SetHeaderTableSize ...
func (st *Settings) SetHeaderTableSize(size uint32) {
	st.tableSize = size
}

// Push ...
func (st *Settings) Push() bool {
	return st.enablePush
}

// SetPush ...
func (st *Settings) SetPush(value bool) {
	st.enablePush = value
}

// MaxStreams ...
func (st *Settings) MaxStreams() uint32 {
	return st.maxStreams
}

// SetMaxStreams ...
func (st *Settings) SetMaxStreams(n uint32) {
	st.maxStreams = n
}

// InitialWindowSize returns the negotiated per-stream window size.
func (st *Settings) InitialWindowSize() uint32 {
	return st.windowSize
}

// SetInitialWindowSize ...
func (st *Settings) SetInitialWindowSize(size uint32) {
	st.windowSize = size
}

// MaxFrameSize ...
func (st *Settings) MaxFrameSize() uint32 {
	return st.frameSize
}

// SetMaxFrameSize ...
func (st *Settings) SetMaxFrameSize(size uint32) {
	st.frameSize = size
}

// MaxHeaderListSize ...
func (st *Settings) MaxHeaderListSize() uint32 {
	return st.headerListSize
}

// SetMaxHeaderListSize ...
func (st *Settings) SetMaxHeaderListSize(size uint32) {
	st.headerListSize = size
}

// IsAck returns true if the frame is an acknowledgement.
func (st *Settings) IsAck() bool {
	return st.ack
}

// SetAck ...
func (st *Settings) SetAck(ack bool) {
	st.ack = ack
}

func (st *Settings) Deserialize(frh *FrameHeader) error {
	if frh.Flags().Has(FlagAck) {
		st.ack = true
		return nil
	}

	payload := frh.payload
	if len(payload)%6 != 0 {
		return ErrMissingBytes
	}

	for len(payload) >= 6 {
		id := uint16(payload[0])<<8 | uint16(payload[1])
		value := http2utils.BytesToUint32(payload[2:6])

		switch id {
		case HeaderTableSize:
			st.tableSize = value
		case EnablePush:
			st.enablePush = value != 0
		case MaxConcurrentStreams:
			st.maxStreams = value
		case InitialWindowSize:
			st.windowSize = value
		case MaxFrameSize:
			st.frameSize = value
		case MaxHeaderListSize:
			st.headerListSize = value
		}

		payload = payload[6:]
	}

	return nil
}

func (st *Settings) Serialize(frh *FrameHeader) {
	frh.payload = frh.payload[:0]

	if st.ack {
		frh.SetFlags(
			frh.Flags().Add(FlagAck))
		return
	}

	appendSetting := func(id uint16, value uint32) {
		frh.payload = append(frh.payload, byte(id>>8), byte(id))
		frh.payload = http2utils.AppendUint32Bytes(frh.payload, value)
	}

	appendSetting(HeaderTableSize, st.tableSize)
	if st.enablePush {
		appendSetting(EnablePush, 1)
	}
	appendSetting(MaxConcurrentStreams, st.maxStreams)
	appendSetting(InitialWindowSize, st.windowSize)
	appendSetting(MaxFrameSize, st.frameSize)
	if st.headerListSize > 0 {
		appendSetting(MaxHeaderListSize, st.headerListSize)
	}
}

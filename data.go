package http2

import (
	"github.com/domsolutions/h2core/http2utils"
)

const FrameData FrameType = 0x0

var _ Frame = &Data{}

// Data defines a FrameData
//
// Data frames can have the following flags:
// END_STREAM
// PADDED
//
// https://tools.ietf.org/html/rfc7540#section-6.1
type Data struct {
	endStream  bool
	hasPadding bool
	b          []byte // data bytes
}

func (data *Data) Type() FrameType {
	return FrameData
}

func (data *Data) Reset() {
	data.endStream = false
	data.hasPadding = false
	data.b = data.b[:0]
}

// CopyTo copies data to d.
func (data *Data) CopyTo(d *Data) {
	d.hasPadding = data.hasPadding
	d.endStream = data.endStream
	d.b = append(d.b[:0], data.b...)
}

func (data *Data) SetEndStream(value bool) {
	data.endStream = value
}

func (data *Data) EndStream() bool {
	return data.endStream
}

// Data returns the data bytes, with any padding already removed.
func (data *Data) Data() []byte {
	return data.b
}

// SetData resets the data byte slice and sets b.
func (data *Data) SetData(b []byte) {
	data.b = append(data.b[:0], b...)
}

// Padding returns true if the frame will be/was padded.
func (data *Data) Padding() bool {
	return data.hasPadding
}

// SetPadding pads the frame payload on Serialize if true.
func (data *Data) SetPadding(value bool) {
	data.hasPadding = value
}

// Append appends b to the frame data.
func (data *Data) Append(b []byte) {
	data.b = append(data.b, b...)
}

func (data *Data) Len() int {
	return len(data.b)
}

// Write writes b to the frame data.
//
// This function is compatible with io.Writer.
func (data *Data) Write(b []byte) (int, error) {
	n := len(b)
	data.Append(b)

	return n, nil
}

func (data *Data) Deserialize(frh *FrameHeader) error {
	payload := frh.payload

	if frh.Flags().Has(FlagPadded) {
		var ok bool
		payload, ok = http2utils.CutPadding(payload, frh.Len())
		if !ok {
			return ErrPadLength
		}
	}

	data.endStream = frh.Flags().Has(FlagEndStream)
	data.b = append(data.b[:0], payload...)

	return nil
}

func (data *Data) Serialize(frh *FrameHeader) {
	if data.endStream {
		frh.SetFlags(
			frh.Flags().Add(FlagEndStream))
	}

	frh.setPayload(data.b)

	if data.hasPadding {
		frh.SetFlags(
			frh.Flags().Add(FlagPadded))
		frh.payload = http2utils.AddPadding(frh.payload)
	}
}

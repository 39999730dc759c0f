package http2

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

const testStr = "make streams great again"

func roundTrip(t *testing.T, id uint32, fr Frame) *FrameHeader {
	t.Helper()

	frh := AcquireFrameHeader()
	frh.SetStream(id)
	frh.SetBody(fr)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	frameHeaderPool.Put(frh)

	got, err := ReadFrameFrom(bufio.NewReader(&buf))
	require.NoError(t, err)

	return got
}

func TestFrameWrite(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	data := AcquireFrame(FrameData).(*Data)
	fr.SetBody(data)

	n, err := io.WriteString(data, testStr)
	require.NoError(t, err)
	require.Equal(t, len(testStr), n)

	var bf = bytes.NewBuffer(nil)
	var bw = bufio.NewWriter(bf)
	fr.WriteTo(bw)
	bw.Flush()

	b := bf.Bytes()
	require.Equal(t, testStr, string(b[DefaultFrameSize:]))
}

func TestDataRoundTrip(t *testing.T) {
	data := AcquireFrame(FrameData).(*Data)
	data.SetData([]byte(testStr))
	data.SetEndStream(true)

	frh := roundTrip(t, 3, data)
	defer ReleaseFrameHeader(frh)

	require.Equal(t, FrameData, frh.Type())
	require.Equal(t, uint32(3), frh.Stream())

	got := frh.Body().(*Data)
	require.Equal(t, testStr, string(got.Data()))
	require.True(t, got.EndStream())
}

func TestDataPaddedRoundTrip(t *testing.T) {
	data := AcquireFrame(FrameData).(*Data)
	data.SetData([]byte(testStr))
	data.SetPadding(true)

	frh := roundTrip(t, 3, data)
	defer ReleaseFrameHeader(frh)

	require.True(t, frh.Flags().Has(FlagPadded))
	require.Greater(t, frh.Len(), len(testStr))

	got := frh.Body().(*Data)
	require.Equal(t, testStr, string(got.Data()))
}

func TestHeadersPriorityRoundTrip(t *testing.T) {
	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetHeaders([]byte("raw-block"))
	h.SetStream(5)
	h.SetExclusive(true)
	h.SetWeight(32)
	h.SetEndHeaders(true)
	h.SetEndStream(true)

	frh := roundTrip(t, 7, h)
	defer ReleaseFrameHeader(frh)

	got := frh.Body().(*Headers)
	require.True(t, got.HasPriority())
	require.Equal(t, uint32(5), got.Stream())
	require.True(t, got.Exclusive())
	require.Equal(t, byte(32), got.Weight())
	require.True(t, got.EndHeaders())
	require.True(t, got.EndStream())
	require.Equal(t, "raw-block", string(got.Headers()))
}

func TestPriorityRoundTrip(t *testing.T) {
	pry := AcquireFrame(FramePriority).(*Priority)
	pry.SetStream(9)
	pry.SetExclusive(true)
	pry.SetWeight(255)

	frh := roundTrip(t, 11, pry)
	defer ReleaseFrameHeader(frh)

	got := frh.Body().(*Priority)
	require.Equal(t, uint32(9), got.Stream())
	require.True(t, got.Exclusive())
	require.Equal(t, byte(255), got.Weight())
}

func TestRstStreamRoundTrip(t *testing.T) {
	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(StreamCanceled)

	frh := roundTrip(t, 3, rst)
	defer ReleaseFrameHeader(frh)

	require.Equal(t, StreamCanceled, frh.Body().(*RstStream).Code())
}

func TestPushPromiseRoundTrip(t *testing.T) {
	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetPromisedStream(2)
	pp.SetHeaders([]byte("promised-block"))
	pp.SetEndHeaders(true)

	frh := roundTrip(t, 1, pp)
	defer ReleaseFrameHeader(frh)

	got := frh.Body().(*PushPromise)
	require.Equal(t, uint32(2), got.PromisedStream())
	require.Equal(t, "promised-block", string(got.Headers()))
	require.True(t, got.EndHeaders())
}

func TestSettingsRoundTrip(t *testing.T) {
	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetHeaderTableSize(8192)
	st.SetMaxStreams(64)
	st.SetInitialWindowSize(1 << 20)
	st.SetMaxFrameSize(1 << 15)

	frh := roundTrip(t, 0, st)
	defer ReleaseFrameHeader(frh)

	got := frh.Body().(*Settings)
	require.False(t, got.IsAck())
	require.Equal(t, uint32(8192), got.HeaderTableSize())
	require.Equal(t, uint32(64), got.MaxStreams())
	require.Equal(t, uint32(1<<20), got.InitialWindowSize())
	require.Equal(t, uint32(1<<15), got.MaxFrameSize())
}

func TestGoAwayRoundTrip(t *testing.T) {
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetStream(7)
	ga.SetCode(EnhanceYourCalm)
	ga.SetDebug([]byte("slow down"))

	frh := roundTrip(t, 0, ga)
	defer ReleaseFrameHeader(frh)

	got := frh.Body().(*GoAway)
	require.Equal(t, uint32(7), got.Stream())
	require.Equal(t, EnhanceYourCalm, got.Code())
	require.Equal(t, "slow down", string(got.Debug()))
}

func TestWindowUpdateRoundTrip(t *testing.T) {
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(65535)

	frh := roundTrip(t, 3, wu)
	defer ReleaseFrameHeader(frh)

	require.Equal(t, uint32(65535), frh.Body().(*WindowUpdate).Increment())
}

func TestReadFrameExceedsMaxLen(t *testing.T) {
	data := AcquireFrame(FrameData).(*Data)
	data.SetData(make([]byte, 64))

	frh := AcquireFrameHeader()
	frh.SetStream(3)
	frh.SetBody(data)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())
	frameHeaderPool.Put(frh)

	_, err = ReadFrameFromWithSize(bufio.NewReader(&buf), 32)
	require.ErrorIs(t, err, ErrPayloadExceeds)
}

package http2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func handle(t *testing.T, c *Conn, frh *FrameHeader) error {
	t.Helper()

	err := c.Handle(frh)
	ReleaseFrameHeader(frh)
	return err
}

func TestConnDispatchExchange(t *testing.T) {
	c, _ := newTestConn(ConnOpts{Server: true})

	require.NoError(t, handle(t, c, wireHeaders(t, 1, false, ":method", "POST", ":path", "/")))

	strm := c.Stream(1)
	require.NotNil(t, strm)
	require.Equal(t, StreamStateOpen, strm.State())
	require.Len(t, strm.Headers(), 2)

	require.NoError(t, handle(t, c, wireData(t, 1, "payload", true)))
	require.Equal(t, StreamStateHalfClosedRemote, strm.State())
	require.Equal(t, "payload", string(strm.Data()))
}

func TestConnReapsClosedStreams(t *testing.T) {
	var closed int
	c, _ := newTestConn(ConnOpts{
		Server:        true,
		OnStreamClose: func(_ *Stream, _ error) { closed++ },
	})

	require.NoError(t, handle(t, c, wireHeaders(t, 1, true, ":method", "GET")))

	strm := c.Stream(1)
	require.NotNil(t, strm)
	require.Equal(t, StreamStateHalfClosedRemote, strm.State())

	require.NoError(t, handle(t, c, wireReset(t, 1, StreamCanceled)))
	require.Equal(t, StreamStateClosed, strm.State())
	require.Equal(t, 1, closed)

	// reaped: the registry forgets the stream, its id is remembered
	require.Nil(t, c.Stream(1))

	// a late DATA frame on the reaped stream is a stream-closed error
	err := handle(t, c, wireData(t, 1, "late", false))
	require.Error(t, err)
	require.True(t, errors.Is(err, NewError(StreamClosedError, "")))

	// a late RST straggler is ignored
	require.NoError(t, handle(t, c, wireReset(t, 1, StreamCanceled)))
}

func TestConnConvertsStreamErrorToReset(t *testing.T) {
	c, p := newTestConn(ConnOpts{Server: true})

	// the peer half-closes its side, then illegally sends more DATA
	require.NoError(t, handle(t, c, wireHeaders(t, 1, true, ":method", "GET")))

	strm := c.Stream(1)
	require.Equal(t, StreamStateHalfClosedRemote, strm.State())

	err := handle(t, c, wireData(t, 1, "x", false))
	require.Error(t, err)
	require.True(t, errors.Is(err, NewError(ProtocolError, "")))

	frh := emitted(t, p)
	defer ReleaseFrameHeader(frh)

	require.Equal(t, FrameResetStream, frh.Type())
	require.Equal(t, uint32(1), frh.Stream())
	require.Equal(t, ProtocolError, frh.Body().(*RstStream).Code())

	require.Equal(t, StreamStateClosed, strm.State())
}

func TestConnRstOnIdleStream(t *testing.T) {
	c, _ := newTestConn(ConnOpts{Server: true})

	err := handle(t, c, wireReset(t, 1, StreamCanceled))
	require.Error(t, err)
	require.True(t, errors.Is(err, NewError(ProtocolError, "")))
}

func TestConnSettings(t *testing.T) {
	c, p := newTestConn(ConnOpts{})

	strm := c.CreateStream(1)
	strm.state = StreamStateOpen
	before := strm.RemoteWindow().Available()

	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetInitialWindowSize(defaultWindowSize + 100)
	st.SetHeaderTableSize(8192)

	require.NoError(t, handle(t, c, wire(t, 0, st)))

	peerSettings := c.PeerSettings()
	require.Equal(t, uint32(defaultWindowSize+100), peerSettings.InitialWindowSize())

	// open streams get re-based by the delta
	require.Equal(t, before+100, strm.RemoteWindow().Available())

	// and the settings are acknowledged
	frh := emitted(t, p)
	defer ReleaseFrameHeader(frh)
	require.Equal(t, FrameSettings, frh.Type())
	require.True(t, frh.Body().(*Settings).IsAck())

	// new streams start from the re-based initial size
	strm2 := c.CreateStream(3)
	require.Equal(t, int32(defaultWindowSize+100), strm2.RemoteWindow().Available())
}

func TestConnWindowUpdate(t *testing.T) {
	c, _ := newTestConn(ConnOpts{})

	before := c.RemoteWindow().Available()

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(4096)

	require.NoError(t, handle(t, c, wire(t, 0, wu)))
	require.Equal(t, before+4096, c.RemoteWindow().Available())
}

func TestConnPing(t *testing.T) {
	c, p := newTestConn(ConnOpts{})

	ping := AcquireFrame(FramePing).(*Ping)
	ping.SetData([]byte("12345678"))

	require.NoError(t, handle(t, c, wire(t, 0, ping)))

	frh := emitted(t, p)
	defer ReleaseFrameHeader(frh)

	pong := frh.Body().(*Ping)
	require.True(t, pong.IsAck())
	require.Equal(t, "12345678", string(pong.Data()))
}

func TestConnGoAway(t *testing.T) {
	c, _ := newTestConn(ConnOpts{})

	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetStream(5)
	ga.SetCode(EnhanceYourCalm)
	ga.SetDebug([]byte("slow down"))

	require.NoError(t, handle(t, c, wire(t, 0, ga)))

	last := c.LastGoAway()
	require.NotNil(t, last)
	require.Equal(t, uint32(5), last.Stream())
	require.Equal(t, EnhanceYourCalm, last.Code())
}

func TestConnNextStreamID(t *testing.T) {
	c, _ := newTestConn(ConnOpts{})
	require.Equal(t, uint32(1), c.NextStreamID())
	require.Equal(t, uint32(3), c.NextStreamID())

	s, _ := newTestConn(ConnOpts{Server: true})
	require.Equal(t, uint32(2), s.NextStreamID())
	require.Equal(t, uint32(4), s.NextStreamID())
}

func TestConnHeadersSplitIntoContinuation(t *testing.T) {
	c, p := newTestConn(ConnOpts{})

	// shrink the peer's frame size so the block must be split
	st := AcquireFrame(FrameSettings).(*Settings)
	st.Reset()
	st.SetMaxFrameSize(16)
	require.NoError(t, c.ApplyPeerSettings(st))
	ReleaseFrame(st)

	strm := c.CreateStream(1)

	hfs := testFields(t,
		"x-first-header-name", "first-header-value",
		"x-second-header-name", "second-header-value",
	)
	defer ReleaseHeaderFields(hfs)

	require.NoError(t, strm.SendHeaders(hfs, nil, false))

	frh := emitted(t, p)
	require.Equal(t, FrameHeaders, frh.Type())
	require.False(t, frh.Flags().Has(FlagEndHeaders))
	require.LessOrEqual(t, frh.Len(), 16)

	block := append([]byte(nil), frh.Body().(*Headers).Headers()...)
	ReleaseFrameHeader(frh)

	ended := false
	for !ended {
		frh = emitted(t, p)
		require.Equal(t, FrameContinuation, frh.Type())
		require.LessOrEqual(t, frh.Len(), 16)

		cont := frh.Body().(*Continuation)
		block = append(block, cont.Headers()...)
		ended = cont.EndHeaders()
		ReleaseFrameHeader(frh)
	}

	// the reassembled block decodes to the original field list
	hp := AcquireHPACK()
	defer ReleaseHPACK(hp)

	got, err := hp.Unpack(block)
	require.NoError(t, err)
	defer ReleaseHeaderFields(got)

	require.Len(t, got, 2)
	require.Equal(t, "x-first-header-name", got[0].Key())
}

func TestConnDataSplitByFrameSize(t *testing.T) {
	c, p := newTestConn(ConnOpts{})

	st := AcquireFrame(FrameSettings).(*Settings)
	st.Reset()
	st.SetMaxFrameSize(4)
	require.NoError(t, c.ApplyPeerSettings(st))
	ReleaseFrame(st)

	strm := c.CreateStream(1)
	strm.state = StreamStateOpen

	require.NoError(t, strm.SendData([]byte("0123456789"), true))

	var got []byte
	ended := false
	for !ended {
		frh := emitted(t, p)
		require.Equal(t, FrameData, frh.Type())
		require.LessOrEqual(t, frh.Len(), 4)

		data := frh.Body().(*Data)
		got = append(got, data.Data()...)
		ended = data.EndStream()
		ReleaseFrameHeader(frh)
	}

	require.Equal(t, "0123456789", string(got))
}

func TestAcceptPushPromiseStreamRefusesKnownID(t *testing.T) {
	c, _ := newTestConn(ConnOpts{})

	c.CreateStream(2)

	_, err := c.AcceptPushPromiseStream(2)
	require.Error(t, err)
	require.True(t, errors.Is(err, NewError(ProtocolError, "")))
}

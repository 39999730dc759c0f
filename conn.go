package http2

import (
	"bufio"
	"errors"
	"io"
	"log"
	"os"
	"sync"
)

// PushStreamFactory creates the streams PUSH_PROMISE reserves. The
// connection is the default implementation; override it through ConnOpts
// to control push admission.
type PushStreamFactory interface {
	// CreatePushPromiseStream allocates the next locally-initiated
	// stream for an outbound promise.
	CreatePushPromiseStream() (*Stream, error)

	// AcceptPushPromiseStream registers the stream id an inbound
	// promise reserved.
	AcceptPushPromiseStream(id uint32) (*Stream, error)
}

// ConnOpts defines the connection options.
type ConnOpts struct {
	// Server makes the connection allocate even stream ids.
	Server bool

	// Logger receives debug traces when Debug is set.
	Logger *log.Logger

	// Debug ...
	Debug bool

	// PushStreams overrides the push-promise stream factory.
	PushStreams PushStreamFactory

	// OnStreamClose fires once per stream when it reaches closed.
	// err is non-nil only when the closure was caused by a reset.
	OnStreamClose func(*Stream, error)
}

// Conn multiplexes streams over a single transport. It owns frame I/O,
// the HPACK tables, the stream registry and the connection-level
// flow-control windows; streams reach all of it through their conn
// back-reference.
type Conn struct {
	wmu sync.Mutex // serializes frame writes; header blocks stay contiguous
	bw  *bufio.Writer
	br  *bufio.Reader

	emu sync.Mutex
	enc *HPACK
	dmu sync.Mutex
	dec *HPACK

	idMu   sync.Mutex
	nextID uint32

	streams    Streams
	priorityMu sync.Mutex // guards every stream's priority record

	closedMu    sync.Mutex
	closedStrms map[uint32]struct{}

	stMu   sync.RWMutex
	localS Settings // our settings
	peerS  Settings // the peer's settings

	localWindow  *Window // octets the peer may still send us
	remoteWindow *Window // octets we may still send the peer

	push          PushStreamFactory
	onStreamClose func(*Stream, error)

	lastGoAway *GoAway

	logger *log.Logger
	debug  bool
}

// NewConn returns a Conn framing over rw.
//
// The preface and SETTINGS exchange are the transport setup's concern;
// apply the negotiated settings with ApplyPeerSettings/ApplyLocalSettings.
func NewConn(rw io.ReadWriter, opts ConnOpts) *Conn {
	c := &Conn{
		br:            bufio.NewReaderSize(rw, 4096),
		bw:            bufio.NewWriterSize(rw, int(defaultMaxFrameSize)),
		enc:           AcquireHPACK(),
		dec:           AcquireHPACK(),
		nextID:        1,
		closedStrms:   make(map[uint32]struct{}),
		localWindow:   NewWindow(int32(defaultWindowSize)),
		remoteWindow:  NewWindow(int32(defaultWindowSize)),
		onStreamClose: opts.OnStreamClose,
		logger:        opts.Logger,
		debug:         opts.Debug,
	}

	if opts.Server {
		c.nextID = 2
	}

	c.localS.Reset()
	c.peerS.Reset()

	c.push = opts.PushStreams
	if c.push == nil {
		c.push = c
	}

	if c.logger == nil {
		c.logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	return c
}

func (c *Conn) logf(format string, args ...interface{}) {
	if c.debug {
		c.logger.Printf(format, args...)
	}
}

// NextStreamID allocates the next locally-initiated stream id.
func (c *Conn) NextStreamID() uint32 {
	c.idMu.Lock()
	id := c.nextID
	c.nextID += 2
	c.idMu.Unlock()
	return id
}

// CreateStream instantiates and registers a stream in idle state, with
// both windows initialized from the negotiated settings.
func (c *Conn) CreateStream(id uint32) *Stream {
	c.stMu.RLock()
	localWin := int32(c.localS.InitialWindowSize())
	remoteWin := int32(c.peerS.InitialWindowSize())
	c.stMu.RUnlock()

	strm := &Stream{
		id:           id,
		state:        StreamStateIdle,
		conn:         c,
		localWindow:  NewWindow(localWin),
		remoteWindow: NewWindow(remoteWin),
		priority:     DefaultPriority(),
	}

	c.streams.Insert(strm)

	c.logf("stream %d created", id)

	return strm
}

// Stream looks a stream up by id. References to stream 0 mean the
// connection itself, never a registry entry.
func (c *Conn) Stream(id uint32) *Stream {
	return c.streams.Get(id)
}

// ChildrenOf returns every registered stream depending on id; id 0 names
// the connection root.
func (c *Conn) ChildrenOf(id uint32) []*Stream {
	c.priorityMu.Lock()
	defer c.priorityMu.Unlock()

	var children []*Stream
	c.streams.Range(func(strm *Stream) bool {
		if strm.id != id && strm.priority.Dependency == id {
			children = append(children, strm)
		}
		return true
	})

	return children
}

func (c *Conn) streamPriority(s *Stream) StreamPriority {
	c.priorityMu.Lock()
	pr := s.priority
	c.priorityMu.Unlock()
	return pr
}

// setStreamPriority installs pr on s. Self-dependency fails with
// ProtocolError and leaves the record unchanged. An exclusive dependency
// reparents every current child of the new parent onto s first.
func (c *Conn) setStreamPriority(s *Stream, pr StreamPriority) error {
	if pr.Dependency == s.id {
		return NewError(ProtocolError, "stream cannot depend on itself")
	}

	if pr.Weight == 0 {
		pr.Weight = DefaultWeight
	}

	c.priorityMu.Lock()
	defer c.priorityMu.Unlock()

	if pr.Exclusive {
		c.streams.Range(func(strm *Stream) bool {
			if strm.id != s.id && strm.priority.Dependency == pr.Dependency {
				strm.priority.Dependency = s.id
			}
			return true
		})
	}

	s.priority = pr

	return nil
}

// streamClosed reaps a stream that reached closed: it leaves the
// registry and its id is remembered so late frames are told apart from
// idle-stream ones.
func (c *Conn) streamClosed(s *Stream, err error) {
	c.closedMu.Lock()
	c.closedStrms[s.id] = struct{}{}
	c.closedMu.Unlock()

	c.streams.Del(s.id)

	c.logf("stream %d destroyed (err=%v)", s.id, err)

	if c.onStreamClose != nil {
		c.onStreamClose(s, err)
	}
}

func (c *Conn) wasClosed(id uint32) bool {
	c.closedMu.Lock()
	_, ok := c.closedStrms[id]
	c.closedMu.Unlock()
	return ok
}

// CreatePushPromiseStream implements PushStreamFactory.
func (c *Conn) CreatePushPromiseStream() (*Stream, error) {
	return c.CreateStream(c.NextStreamID()), nil
}

// AcceptPushPromiseStream implements PushStreamFactory.
func (c *Conn) AcceptPushPromiseStream(id uint32) (*Stream, error) {
	if c.streams.Get(id) != nil || c.wasClosed(id) {
		return nil, NewError(ProtocolError, "promised stream id already in use")
	}

	return c.CreateStream(id), nil
}

// encodeHeaders compresses hfs into a header block fragment.
func (c *Conn) encodeHeaders(hfs []*HeaderField) []byte {
	c.emu.Lock()
	raw := c.enc.AppendHeaders(nil, hfs, true)
	c.emu.Unlock()
	return raw
}

// decodeHeaders decompresses a complete header block fragment.
func (c *Conn) decodeHeaders(b []byte) ([]*HeaderField, error) {
	c.dmu.Lock()
	hfs, err := c.dec.Unpack(b)
	c.dmu.Unlock()
	return hfs, err
}

// MaxFrameSize returns the largest frame payload the peer accepts.
func (c *Conn) MaxFrameSize() uint32 {
	c.stMu.RLock()
	n := c.peerS.MaxFrameSize()
	c.stMu.RUnlock()
	return n
}

// AvailableFrameSize returns the largest DATA payload worth emitting in
// one frame right now: the peer's frame size capped by the connection
// send window.
func (c *Conn) AvailableFrameSize() int {
	n := int(c.MaxFrameSize())
	if win := int(c.remoteWindow.Available()); win < n {
		n = win
	}
	if n < 0 {
		n = 0
	}

	return n
}

// LocalSettings returns a copy of our settings.
func (c *Conn) LocalSettings() Settings {
	c.stMu.RLock()
	st := c.localS
	c.stMu.RUnlock()
	return st
}

// PeerSettings returns a copy of the peer's settings.
func (c *Conn) PeerSettings() Settings {
	c.stMu.RLock()
	st := c.peerS
	c.stMu.RUnlock()
	return st
}

// LocalWindow returns the connection-level receive window.
func (c *Conn) LocalWindow() *Window {
	return c.localWindow
}

// RemoteWindow returns the connection-level send window.
func (c *Conn) RemoteWindow() *Window {
	return c.remoteWindow
}

func (c *Conn) consumeLocalWindow(n int32) {
	c.localWindow.Consume(n)
}

func (c *Conn) consumeRemoteWindow(n int32) {
	c.remoteWindow.Consume(n)
}

// LastGoAway returns the last GOAWAY received from the peer, if any.
func (c *Conn) LastGoAway() *GoAway {
	return c.lastGoAway
}

// ApplyPeerSettings installs the settings the peer announced: HPACK
// encoder table size and a re-base of every stream's send window by the
// initial-window-size delta.
func (c *Conn) ApplyPeerSettings(st *Settings) error {
	c.emu.Lock()
	c.enc.SetMaxTableSize(st.HeaderTableSize())
	c.emu.Unlock()

	var err error
	c.streams.Range(func(strm *Stream) bool {
		err = strm.remoteWindow.SetCapacity(int32(st.InitialWindowSize()))
		return err == nil
	})
	if err != nil {
		return err
	}

	c.stMu.Lock()
	st.CopyTo(&c.peerS)
	c.stMu.Unlock()

	return nil
}

// ApplyLocalSettings installs our own settings once acknowledged,
// re-basing every stream's receive window.
func (c *Conn) ApplyLocalSettings(st *Settings) error {
	c.dmu.Lock()
	c.dec.SetMaxTableSize(st.HeaderTableSize())
	c.dmu.Unlock()

	var err error
	c.streams.Range(func(strm *Stream) bool {
		err = strm.localWindow.SetCapacity(int32(st.InitialWindowSize()))
		return err == nil
	})
	if err != nil {
		return err
	}

	c.stMu.Lock()
	st.CopyTo(&c.localS)
	c.stMu.Unlock()

	return nil
}

// WriteFrame serializes and flushes a single frame.
func (c *Conn) WriteFrame(frh *FrameHeader) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_, err := frh.WriteTo(c.bw)
	if err == nil {
		err = c.bw.Flush()
	}

	return err
}

// writeHeaders emits one HEADERS frame for hfs, splitting the encoded
// block into CONTINUATION frames when it exceeds the peer's frame size.
// The whole block is written in one uninterrupted operation.
func (c *Conn) writeHeaders(id uint32, hfs []*HeaderField, pr *StreamPriority, endStream bool) error {
	raw := c.encodeHeaders(hfs)

	limit := int(c.MaxFrameSize())

	c.wmu.Lock()
	defer c.wmu.Unlock()

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndStream(endStream)

	first := raw
	if pr != nil {
		h.SetStream(pr.Dependency)
		h.SetExclusive(pr.Exclusive)
		h.SetWeight(pr.Weight)

		if limit > 5 && len(first) > limit-5 {
			first = first[:limit-5]
		}
	} else if len(first) > limit {
		first = first[:limit]
	}

	rest := raw[len(first):]

	h.SetHeaders(first)
	h.SetEndHeaders(len(rest) == 0)

	frh := AcquireFrameHeader()
	frh.SetStream(id)
	frh.SetBody(h)

	_, err := frh.WriteTo(c.bw)
	ReleaseFrameHeader(frh)

	for err == nil && len(rest) > 0 {
		chunk := rest
		if len(chunk) > limit {
			chunk = chunk[:limit]
		}
		rest = rest[len(chunk):]

		cont := AcquireFrame(FrameContinuation).(*Continuation)
		cont.SetHeaders(chunk)
		cont.SetEndHeaders(len(rest) == 0)

		frh = AcquireFrameHeader()
		frh.SetStream(id)
		frh.SetBody(cont)

		_, err = frh.WriteTo(c.bw)
		ReleaseFrameHeader(frh)
	}

	if err == nil {
		err = c.bw.Flush()
	}

	return err
}

// writeData emits b as one or more DATA frames bounded by the peer's
// frame size, flagging end-stream on the last one.
func (c *Conn) writeData(id uint32, b []byte, endStream bool) error {
	limit := int(c.MaxFrameSize())

	c.wmu.Lock()
	defer c.wmu.Unlock()

	var err error
	for first := true; err == nil && (first || len(b) > 0); first = false {
		chunk := b
		if len(chunk) > limit {
			chunk = chunk[:limit]
		}
		b = b[len(chunk):]

		data := AcquireFrame(FrameData).(*Data)
		data.SetData(chunk)
		data.SetEndStream(endStream && len(b) == 0)

		frh := AcquireFrameHeader()
		frh.SetStream(id)
		frh.SetBody(data)

		_, err = frh.WriteTo(c.bw)
		ReleaseFrameHeader(frh)
	}

	if err == nil {
		err = c.bw.Flush()
	}

	return err
}

func (c *Conn) writePushPromise(id, promisedID uint32, hfs []*HeaderField) error {
	raw := c.encodeHeaders(hfs)

	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetPromisedStream(promisedID)
	pp.SetHeaders(raw)
	pp.SetEndHeaders(true)

	frh := AcquireFrameHeader()
	frh.SetStream(id)
	frh.SetBody(pp)

	err := c.WriteFrame(frh)
	ReleaseFrameHeader(frh)

	return err
}

func (c *Conn) writeReset(id uint32, code ErrorCode) error {
	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(code)

	frh := AcquireFrameHeader()
	frh.SetStream(id)
	frh.SetBody(rst)

	err := c.WriteFrame(frh)
	ReleaseFrameHeader(frh)

	c.logf("reset(stream=%d, code=%s)", id, code)

	return err
}

func (c *Conn) writeWindowUpdate(id uint32, increment uint32) error {
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(increment)

	frh := AcquireFrameHeader()
	frh.SetStream(id)
	frh.SetBody(wu)

	err := c.WriteFrame(frh)
	ReleaseFrameHeader(frh)

	return err
}

// Next reads the next frame, bounded by our max frame size.
//
// The returned FrameHeader must be released with ReleaseFrameHeader.
func (c *Conn) Next() (*FrameHeader, error) {
	c.stMu.RLock()
	max := c.localS.MaxFrameSize()
	c.stMu.RUnlock()

	return ReadFrameFromWithSize(c.br, max)
}

// Handle dispatches one inbound frame: connection-plane frames are
// handled here, stream frames go to the owning stream's receive entry
// points. Stream-scoped errors are converted into RST_STREAM toward the
// peer and close the stream; the connection stays alive.
func (c *Conn) Handle(frh *FrameHeader) error {
	if frh.Stream() == 0 {
		return c.handleConnFrame(frh)
	}

	id := frh.Stream()

	strm := c.streams.Get(id)
	if strm == nil {
		switch {
		case c.wasClosed(id):
			if frh.Type() == FramePriority || frh.Type() == FrameResetStream {
				// harmless stragglers after reaping
				return nil
			}

			return NewError(StreamClosedError, "frame on closed stream")
		case frh.Type() == FrameHeaders || frh.Type() == FramePriority:
			// the peer is opening (or prioritizing) a new stream
			strm = c.CreateStream(id)
		case frh.Type() == FrameResetStream:
			return NewError(ProtocolError, "RST_STREAM on idle stream")
		default:
			return NewError(ProtocolError, frh.Type().String()+" on idle stream")
		}
	}

	var err error

	switch frh.Type() {
	case FrameHeaders:
		err = strm.ReceiveHeaders(frh)
	case FrameData:
		err = strm.ReceiveData(frh)
	case FramePriority:
		err = strm.ReceivePriority(frh)
	case FrameResetStream:
		err = strm.ReceiveResetStream(frh)
	case FramePushPromise:
		_, err = strm.ReceivePushPromise(frh)
	case FrameWindowUpdate:
		err = strm.ReceiveWindowUpdate(frh)
	default:
		err = NewError(ProtocolError, "unexpected "+frh.Type().String())
	}

	if err != nil {
		code := errorCode(err)
		_ = c.writeReset(id, code)
		strm.forceClose(NewError(code, "stream error"))
	}

	return err
}

func (c *Conn) handleConnFrame(frh *FrameHeader) error {
	switch frh.Type() {
	case FrameSettings:
		st := frh.Body().(*Settings)
		if st.IsAck() {
			return nil
		}

		if err := c.ApplyPeerSettings(st); err != nil {
			return err
		}

		ack := AcquireFrame(FrameSettings).(*Settings)
		ack.SetAck(true)

		afr := AcquireFrameHeader()
		afr.SetBody(ack)

		err := c.WriteFrame(afr)
		ReleaseFrameHeader(afr)

		return err
	case FrameWindowUpdate:
		wu := frh.Body().(*WindowUpdate)
		return c.remoteWindow.Expand(int32(wu.Increment()))
	case FramePing:
		ping := frh.Body().(*Ping)
		if ping.IsAck() {
			return nil
		}

		pong := AcquireFrame(FramePing).(*Ping)
		ping.CopyTo(pong)
		pong.SetAck(true)

		pfr := AcquireFrameHeader()
		pfr.SetBody(pong)

		err := c.WriteFrame(pfr)
		ReleaseFrameHeader(pfr)

		return err
	case FrameGoAway:
		ga := frh.Body().(*GoAway)

		last := AcquireFrame(FrameGoAway).(*GoAway)
		ga.CopyTo(last)
		c.lastGoAway = last

		return nil
	}

	return NewError(ProtocolError, frh.Type().String()+" on the connection")
}

// errorCode extracts the RST_STREAM code to surface for err.
func errorCode(err error) ErrorCode {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}

	return InternalError
}

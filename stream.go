package http2

import (
	"strconv"
	"sync"
)

// DefaultWeight is the priority weight a stream gets before any PRIORITY
// information arrives.
//
// https://tools.ietf.org/html/rfc7540#section-5.3.5
const DefaultWeight = 16

// StreamPriority locates a stream in the connection's dependency forest.
//
// A Dependency of 0 means the stream depends on the connection root.
type StreamPriority struct {
	Dependency uint32
	Exclusive  bool
	Weight     uint8
}

// DefaultPriority returns the priority record of a freshly created stream.
func DefaultPriority() StreamPriority {
	return StreamPriority{Weight: DefaultWeight}
}

// streamEvent is one of the eight events that drive the stream state
// machine. The end-stream flag rides next to the event, not inside it.
type streamEvent int8

const (
	eventSendHeaders streamEvent = iota
	eventSendData
	eventSendReset
	eventRecvHeaders
	eventRecvData
	eventRecvReset
	eventReserveLocal
	eventReserveRemote
)

func (ev streamEvent) String() string {
	switch ev {
	case eventSendHeaders:
		return "send_headers"
	case eventSendData:
		return "send_data"
	case eventSendReset:
		return "send_reset_stream"
	case eventRecvHeaders:
		return "receive_headers"
	case eventRecvData:
		return "receive_data"
	case eventRecvReset:
		return "receive_reset_stream"
	case eventReserveLocal:
		return "reserve_local"
	case eventReserveRemote:
		return "reserve_remote"
	}

	return "unknown"
}

// Stream is one independent, bidirectional exchange multiplexed on a
// connection.
//
// Every operation on a Stream is atomic with respect to any other
// operation on the same stream. The registry and the priority forest are
// the connection's concern; the stream reaches them through its conn
// back-reference.
type Stream struct {
	mu sync.Mutex

	id    uint32
	state StreamState

	conn *Conn

	localWindow  *Window // octets the peer may still send us
	remoteWindow *Window // octets we may still send the peer

	priority StreamPriority // guarded by conn.priorityMu

	headers []*HeaderField // last received field list
	data    []byte         // last received DATA payload

	hookFired bool
	onClose   func(*Stream, error)
}

// ID returns the stream identifier.
func (s *Stream) ID() uint32 {
	return s.id
}

// State returns the current lifecycle state.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return state
}

// Active returns true if the stream counts against concurrency limits.
func (s *Stream) Active() bool {
	return s.State().Active()
}

// Conn returns the owning connection.
func (s *Stream) Conn() *Conn {
	return s.conn
}

// Headers returns the most recently received header field list.
func (s *Stream) Headers() []*HeaderField {
	s.mu.Lock()
	hfs := s.headers
	s.mu.Unlock()
	return hfs
}

// Data returns the most recently received DATA payload, unpadded.
func (s *Stream) Data() []byte {
	s.mu.Lock()
	b := s.data
	s.mu.Unlock()
	return b
}

// LocalWindow returns the receive-side flow-control window.
func (s *Stream) LocalWindow() *Window {
	return s.localWindow
}

// RemoteWindow returns the send-side flow-control window.
func (s *Stream) RemoteWindow() *Window {
	return s.remoteWindow
}

// SetOnClose sets the hook invoked exactly once when the stream closes.
// err is non-nil only when the closure was caused by a reset.
func (s *Stream) SetOnClose(cb func(*Stream, error)) {
	s.mu.Lock()
	s.onClose = cb
	s.mu.Unlock()
}

// Priority returns the stream's priority record.
func (s *Stream) Priority() StreamPriority {
	return s.conn.streamPriority(s)
}

// SetPriority installs a new priority record, reparenting the former
// parent's children when the dependency is exclusive.
//
// A stream may not depend on itself; that fails with ProtocolError and
// leaves the record unchanged.
func (s *Stream) SetPriority(pr StreamPriority) error {
	return s.conn.setStreamPriority(s, pr)
}

// Parent resolves the stream this one depends on, or nil for the
// connection root.
func (s *Stream) Parent() *Stream {
	dep := s.Priority().Dependency
	if dep == 0 {
		return nil
	}

	return s.conn.Stream(dep)
}

// Children returns every registered stream currently depending on s.
func (s *Stream) Children() []*Stream {
	return s.conn.ChildrenOf(s.id)
}

// transition advances the state machine for ev, honoring the end-stream
// flag. Illegal (state, event) pairs fail with ProtocolError and leave
// the state untouched. Must be called with s.mu held.
func (s *Stream) transition(ev streamEvent, endStream bool) error {
	switch s.state {
	case StreamStateIdle:
		switch ev {
		case eventSendHeaders:
			if endStream {
				s.state = StreamStateHalfClosedLocal
			} else {
				s.state = StreamStateOpen
			}
			return nil
		case eventRecvHeaders:
			if endStream {
				s.state = StreamStateHalfClosedRemote
			} else {
				s.state = StreamStateOpen
			}
			return nil
		case eventReserveLocal:
			s.state = StreamStateReservedLocal
			return nil
		case eventReserveRemote:
			s.state = StreamStateReservedRemote
			return nil
		}
	case StreamStateReservedLocal:
		switch ev {
		case eventSendHeaders:
			s.state = StreamStateHalfClosedRemote
			return nil
		case eventSendReset, eventRecvReset:
			s.closeLocked(ev, nil)
			return nil
		}
	case StreamStateReservedRemote:
		switch ev {
		case eventRecvHeaders:
			s.state = StreamStateHalfClosedLocal
			return nil
		case eventSendReset, eventRecvReset:
			s.closeLocked(ev, nil)
			return nil
		}
	case StreamStateOpen:
		switch ev {
		case eventSendHeaders, eventSendData:
			if endStream {
				s.state = StreamStateHalfClosedLocal
			}
			return nil
		case eventRecvHeaders, eventRecvData:
			if endStream {
				s.state = StreamStateHalfClosedRemote
			}
			return nil
		case eventSendReset, eventRecvReset:
			s.closeLocked(ev, nil)
			return nil
		}
	case StreamStateHalfClosedLocal:
		switch ev {
		case eventSendHeaders:
			// trailers on the still-open receive side do not move the state
			return nil
		case eventRecvHeaders, eventRecvData:
			if endStream {
				s.closeLocked(ev, nil)
			}
			return nil
		case eventSendReset, eventRecvReset:
			s.closeLocked(ev, nil)
			return nil
		}
	case StreamStateHalfClosedRemote:
		switch ev {
		case eventSendHeaders, eventSendData:
			if endStream {
				s.closeLocked(ev, nil)
			}
			return nil
		case eventSendReset, eventRecvReset:
			s.closeLocked(ev, nil)
			return nil
		}
	case StreamStateClosed:
		// closed is absorbing; every event is refused below
	}

	return NewError(ProtocolError,
		ev.String()+" in state "+s.state.String())
}

// closeLocked makes the stream closed and fires the close hook exactly
// once. Re-closing an already closed stream is a no-op. Must be called
// with s.mu held.
func (s *Stream) closeLocked(ev streamEvent, err error) {
	if ev == eventSendReset || ev == eventRecvReset {
		if err == nil {
			err = NewError(StreamCanceled, "stream reset")
		}
	}

	s.state = StreamStateClosed

	if !s.hookFired {
		s.hookFired = true
		if s.onClose != nil {
			s.onClose(s, err)
		}
		if s.conn != nil {
			s.conn.streamClosed(s, err)
		}
	}
}

// checkState fails with ProtocolError unless the current state is one of
// allowed. Must be called with s.mu held.
func (s *Stream) checkState(op string, allowed ...StreamState) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}

	return NewError(ProtocolError, op+" in state "+s.state.String())
}

// SendHeaders encodes hfs through the connection's HPACK encoder and
// emits a HEADERS frame, splitting into CONTINUATION when the block
// exceeds the negotiated frame size. pr, when non-nil, rides as the
// frame's priority block and is applied to this stream first.
func (s *Stream) SendHeaders(hfs []*HeaderField, pr *StreamPriority, endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.checkState("send_headers",
		StreamStateIdle, StreamStateReservedLocal, StreamStateOpen,
		StreamStateHalfClosedLocal, StreamStateHalfClosedRemote)
	if err != nil {
		return err
	}

	if pr != nil {
		if err = s.conn.setStreamPriority(s, *pr); err != nil {
			return err
		}
	}

	if err = s.conn.writeHeaders(s.id, hfs, pr, endStream); err != nil {
		return err
	}

	return s.transition(eventSendHeaders, endStream)
}

// SendData charges the payload against the stream and connection send
// windows and emits it as DATA frames bounded by the peer's frame size,
// end-stream flagged on the last one. The charge happens regardless of the
// balance; use SendDataStrict when the caller requires credit.
func (s *Stream) SendData(b []byte, endStream bool) error {
	return s.sendData(b, endStream, false)
}

// SendDataStrict behaves like SendData but refuses with FlowControlError,
// charging nothing, when the payload exceeds the stream or connection
// credit.
func (s *Stream) SendDataStrict(b []byte, endStream bool) error {
	return s.sendData(b, endStream, true)
}

func (s *Stream) sendData(b []byte, endStream, strict bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.checkState("send_data", StreamStateOpen, StreamStateHalfClosedRemote)
	if err != nil {
		return err
	}

	n := int32(len(b))

	if strict && (s.remoteWindow.Available() < n || s.conn.RemoteWindow().Available() < n) {
		return NewError(FlowControlError, "payload exceeds the send window")
	}

	s.remoteWindow.Consume(n)
	s.conn.consumeRemoteWindow(n)

	if err = s.conn.writeData(s.id, b, endStream); err != nil {
		return err
	}

	return s.transition(eventSendData, endStream)
}

// SendResetStream emits RST_STREAM with the given code and closes the
// stream. Resetting an idle or closed stream is a protocol error.
func (s *Stream) SendResetStream(code ErrorCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StreamStateIdle || s.state == StreamStateClosed {
		return NewError(ProtocolError, "send_reset_stream in state "+s.state.String())
	}

	if err := s.conn.writeReset(s.id, code); err != nil {
		return err
	}

	s.closeLocked(eventSendReset, NewError(code, "stream reset locally"))

	return nil
}

// SendPushPromise reserves a new local stream through the connection's
// push factory, emits PUSH_PROMISE on this stream carrying the promised
// id and the synthesized request headers, and returns the promised
// stream for the subsequent response.
func (s *Stream) SendPushPromise(hfs []*HeaderField) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.checkState("send_push_promise", StreamStateOpen, StreamStateHalfClosedRemote)
	if err != nil {
		return nil, err
	}

	promised, err := s.conn.push.CreatePushPromiseStream()
	if err != nil {
		return nil, err
	}

	_ = s.conn.setStreamPriority(promised, StreamPriority{
		Dependency: s.id,
		Weight:     DefaultWeight,
	})

	if err = promised.reserveLocal(); err != nil {
		return nil, err
	}

	if err = s.conn.writePushPromise(s.id, promised.id, hfs); err != nil {
		return nil, err
	}

	return promised, nil
}

// SendFailure reports a terminal failure: a trailers-style HEADERS with
// :status and a reason field if headers may still be sent, RST_STREAM
// with ProtocolError otherwise.
func (s *Stream) SendFailure(status int, reason string) error {
	switch s.State() {
	case StreamStateIdle, StreamStateReservedLocal, StreamStateOpen,
		StreamStateHalfClosedLocal, StreamStateHalfClosedRemote:

		st := AcquireHeaderField()
		st.SetBytes(StringStatus, []byte(strconv.Itoa(status)))

		rs := AcquireHeaderField()
		rs.Set("reason", reason)

		err := s.SendHeaders([]*HeaderField{st, rs}, nil, true)

		ReleaseHeaderField(st)
		ReleaseHeaderField(rs)

		return err
	}

	return s.SendResetStream(ProtocolError)
}

// ReceiveHeaders unpacks an inbound HEADERS frame: applies its priority
// block if present, HPACK-decodes the block into the stored field list
// and advances the state machine.
func (s *Stream) ReceiveHeaders(frh *FrameHeader) error {
	h, ok := frh.Body().(*Headers)
	if !ok {
		return NewError(InternalError, "frame is not HEADERS")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.checkState("receive_headers",
		StreamStateIdle, StreamStateReservedRemote,
		StreamStateOpen, StreamStateHalfClosedLocal)
	if err != nil {
		return err
	}

	if h.HasPriority() {
		err = s.conn.setStreamPriority(s, StreamPriority{
			Dependency: h.Stream(),
			Exclusive:  h.Exclusive(),
			Weight:     h.Weight(),
		})
		if err != nil {
			return err
		}
	}

	hfs, err := s.conn.decodeHeaders(h.Headers())
	if err != nil {
		return err
	}

	if s.headers != nil {
		ReleaseHeaderFields(s.headers)
	}
	s.headers = hfs

	return s.transition(eventRecvHeaders, h.EndStream())
}

// ReceiveData charges the full frame length, padding included, against
// the stream and connection receive windows, stores the unpadded payload
// and advances the state machine.
func (s *Stream) ReceiveData(frh *FrameHeader) error {
	data, ok := frh.Body().(*Data)
	if !ok {
		return NewError(InternalError, "frame is not DATA")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.checkState("receive_data", StreamStateOpen, StreamStateHalfClosedLocal)
	if err != nil {
		return err
	}

	n := int32(frh.Len())
	s.localWindow.Consume(n)
	s.conn.consumeLocalWindow(n)

	s.data = append(s.data[:0], data.Data()...)

	return s.transition(eventRecvData, data.EndStream())
}

// ReceivePriority applies an inbound PRIORITY frame. Legal in any state;
// never moves the state machine.
func (s *Stream) ReceivePriority(frh *FrameHeader) error {
	pry, ok := frh.Body().(*Priority)
	if !ok {
		return NewError(InternalError, "frame is not PRIORITY")
	}

	return s.conn.setStreamPriority(s, StreamPriority{
		Dependency: pry.Stream(),
		Exclusive:  pry.Exclusive(),
		Weight:     pry.Weight(),
	})
}

// ReceiveResetStream closes the stream with the peer's error code.
func (s *Stream) ReceiveResetStream(frh *FrameHeader) error {
	rst, ok := frh.Body().(*RstStream)
	if !ok {
		return NewError(InternalError, "frame is not RST_STREAM")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StreamStateIdle || s.state == StreamStateClosed {
		return NewError(ProtocolError, "receive_reset_stream in state "+s.state.String())
	}

	s.closeLocked(eventRecvReset, NewError(rst.Code(), "stream reset by peer"))

	return nil
}

// ReceivePushPromise accepts an inbound PUSH_PROMISE on this stream:
// instantiates the promised stream through the connection factory, makes
// it depend on this stream, moves it to reserved(remote), decodes the
// promised request headers into it and returns it.
func (s *Stream) ReceivePushPromise(frh *FrameHeader) (*Stream, error) {
	pp, ok := frh.Body().(*PushPromise)
	if !ok {
		return nil, NewError(InternalError, "frame is not PUSH_PROMISE")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.checkState("receive_push_promise", StreamStateOpen, StreamStateHalfClosedLocal)
	if err != nil {
		return nil, err
	}

	promised, err := s.conn.push.AcceptPushPromiseStream(pp.PromisedStream())
	if err != nil {
		return nil, err
	}

	hfs, err := s.conn.decodeHeaders(pp.Headers())
	if err != nil {
		return nil, err
	}

	_ = s.conn.setStreamPriority(promised, StreamPriority{
		Dependency: s.id,
		Weight:     DefaultWeight,
	})

	if err = promised.reserveRemote(); err != nil {
		return nil, err
	}

	promised.mu.Lock()
	if promised.headers != nil {
		ReleaseHeaderFields(promised.headers)
	}
	promised.headers = hfs
	promised.mu.Unlock()

	return promised, nil
}

// ReceiveWindowUpdate refills the send window from an inbound
// WINDOW_UPDATE. Overflow past 2^31-1 fails with FlowControlError and
// leaves the window unchanged.
func (s *Stream) ReceiveWindowUpdate(frh *FrameHeader) error {
	wu, ok := frh.Body().(*WindowUpdate)
	if !ok {
		return NewError(InternalError, "frame is not WINDOW_UPDATE")
	}

	return s.remoteWindow.Expand(int32(wu.Increment()))
}

// SendWindowUpdate grants the peer n more octets on this stream,
// expanding the local receive window and emitting WINDOW_UPDATE.
func (s *Stream) SendWindowUpdate(n int32) error {
	if err := s.localWindow.Expand(n); err != nil {
		return err
	}

	return s.conn.writeWindowUpdate(s.id, uint32(n))
}

// forceClose closes the stream out of band once the connection decided
// to reset it after a receive-path error.
func (s *Stream) forceClose(err error) {
	s.mu.Lock()
	s.closeLocked(eventRecvReset, err)
	s.mu.Unlock()
}

// reserveLocal moves an idle stream into reserved(local).
func (s *Stream) reserveLocal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(eventReserveLocal, false)
}

// reserveRemote moves an idle stream into reserved(remote).
func (s *Stream) reserveRemote() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(eventReserveRemote, false)
}

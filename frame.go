package http2

import (
	"sync"
)

// FrameType identifies the frame type.
//
// https://httpwg.org/specs/rfc7540.html#FrameTypes
type FrameType int8

func (ft FrameType) String() string {
	switch ft {
	case FrameData:
		return "FrameData"
	case FrameHeaders:
		return "FrameHeaders"
	case FramePriority:
		return "FramePriority"
	case FrameResetStream:
		return "FrameResetStream"
	case FrameSettings:
		return "FrameSettings"
	case FramePushPromise:
		return "FramePushPromise"
	case FramePing:
		return "FramePing"
	case FrameGoAway:
		return "FrameGoAway"
	case FrameWindowUpdate:
		return "FrameWindowUpdate"
	case FrameContinuation:
		return "FrameContinuation"
	}

	return "Unknown"
}

// FrameFlags is the 8-bit flag field of a frame header.
type FrameFlags int8

// Has returns true if f contains ff.
func (f FrameFlags) Has(ff FrameFlags) bool {
	return f&ff == ff
}

// Add adds ff to f.
func (f FrameFlags) Add(ff FrameFlags) FrameFlags {
	return f | ff
}

// Del deletes ff from f.
func (f FrameFlags) Del(ff FrameFlags) FrameFlags {
	return f &^ ff
}

// Frame is the generic representation of a frame payload.
//
// A Frame is always carried by a FrameHeader, which owns the wire-level
// length, flags and stream id.
type Frame interface {
	Type() FrameType
	Reset()

	Serialize(*FrameHeader)
	Deserialize(*FrameHeader) error
}

var framePools = func() [FrameContinuation + 1]*sync.Pool {
	var pools [FrameContinuation + 1]*sync.Pool

	pools[FrameData] = &sync.Pool{New: func() interface{} { return &Data{} }}
	pools[FrameHeaders] = &sync.Pool{New: func() interface{} { return &Headers{} }}
	pools[FramePriority] = &sync.Pool{New: func() interface{} { return &Priority{} }}
	pools[FrameResetStream] = &sync.Pool{New: func() interface{} { return &RstStream{} }}
	pools[FrameSettings] = &sync.Pool{New: func() interface{} { return &Settings{} }}
	pools[FramePushPromise] = &sync.Pool{New: func() interface{} { return &PushPromise{} }}
	pools[FramePing] = &sync.Pool{New: func() interface{} { return &Ping{} }}
	pools[FrameGoAway] = &sync.Pool{New: func() interface{} { return &GoAway{} }}
	pools[FrameWindowUpdate] = &sync.Pool{New: func() interface{} { return &WindowUpdate{} }}
	pools[FrameContinuation] = &sync.Pool{New: func() interface{} { return &Continuation{} }}

	return pools
}()

// AcquireFrame gets a Frame of the given type from its pool.
func AcquireFrame(ftype FrameType) Frame {
	if ftype < FrameData || ftype > FrameContinuation {
		return nil
	}

	fr := framePools[ftype].Get().(Frame)
	fr.Reset()
	return fr
}

// ReleaseFrame puts fr back to its pool.
func ReleaseFrame(fr Frame) {
	if fr != nil {
		framePools[fr.Type()].Put(fr)
	}
}

package http2

import (
	"bytes"
	"sync"

	"golang.org/x/net/http2/hpack"
)

// HPACK performs header compression and decompression.
//
// It wraps golang.org/x/net/http2/hpack behind the same surface the frame
// types consume: raw header block fragments in, HeaderField lists out.
//
// HPACK instance MUST NOT be used from different goroutines: the dynamic
// tables require the same serialization the connection gives frame I/O.
type HPACK struct {
	buf bytes.Buffer
	enc *hpack.Encoder
	dec *hpack.Decoder
}

var hpackPool = sync.Pool{
	New: func() interface{} {
		hp := &HPACK{}
		hp.enc = hpack.NewEncoder(&hp.buf)
		hp.dec = hpack.NewDecoder(defaultHeaderTableSize, nil)
		return hp
	},
}

// AcquireHPACK gets an HPACK from the pool.
func AcquireHPACK() *HPACK {
	hp := hpackPool.Get().(*HPACK)
	hp.Reset()
	return hp
}

// ReleaseHPACK puts hp back to the pool.
func ReleaseHPACK(hp *HPACK) {
	hpackPool.Put(hp)
}

// Reset rebuilds the compression state. The dynamic tables are paired
// with a single peer for the connection's lifetime, so a pooled instance
// must never carry entries over to its next owner.
func (hp *HPACK) Reset() {
	hp.buf.Reset()
	hp.enc = hpack.NewEncoder(&hp.buf)
	hp.dec = hpack.NewDecoder(defaultHeaderTableSize, nil)
}

// SetMaxTableSize sets the maximum dynamic table size for both directions.
func (hp *HPACK) SetMaxTableSize(size uint32) {
	hp.enc.SetMaxDynamicTableSize(size)
	hp.dec.SetMaxDynamicTableSize(size)
}

// AppendHeaderField compresses hf and appends the encoded block to dst.
//
// If store is false the field is emitted as never-indexed, keeping it out
// of the dynamic table.
func (hp *HPACK) AppendHeaderField(dst []byte, hf *HeaderField, store bool) []byte {
	hp.buf.Reset()

	// the encoder only fails on its backing writer, and bytes.Buffer never does
	_ = hp.enc.WriteField(hpack.HeaderField{
		Name:      hf.Key(),
		Value:     hf.Value(),
		Sensitive: !store || hf.IsSensible(),
	})

	return append(dst, hp.buf.Bytes()...)
}

// AppendHeaders compresses every field of hfs and appends the block to dst.
func (hp *HPACK) AppendHeaders(dst []byte, hfs []*HeaderField, store bool) []byte {
	for _, hf := range hfs {
		dst = hp.AppendHeaderField(dst, hf, store)
	}

	return dst
}

// Unpack decodes a complete header block fragment into a HeaderField list.
//
// Decode failures surface as CompressionError.
func (hp *HPACK) Unpack(b []byte) ([]*HeaderField, error) {
	fields, err := hp.dec.DecodeFull(b)
	if err != nil {
		return nil, NewError(CompressionError, err.Error())
	}

	hfs := make([]*HeaderField, 0, len(fields))
	for _, f := range fields {
		hf := AcquireHeaderField()
		hf.Set(f.Name, f.Value)
		hf.SetSensible(f.Sensitive)
		hfs = append(hfs, hf)
	}

	return hfs, nil
}

// ReleaseHeaderFields puts every field of hfs back to the pool.
func ReleaseHeaderFields(hfs []*HeaderField) {
	for _, hf := range hfs {
		ReleaseHeaderField(hf)
	}
}

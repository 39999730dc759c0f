package http2utils

import (
	"crypto/rand"

	"github.com/valyala/fastrand"
)

func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2] // bound checking
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func BytesToUint24(b []byte) uint32 {
	_ = b[2] // bound checking
	return uint32(b[0])<<16 |
		uint32(b[1])<<8 |
		uint32(b[2])
}

func AppendUint32Bytes(dst []byte, n uint32) []byte {
	dst = append(dst, byte(n>>24))
	dst = append(dst, byte(n>>16))
	dst = append(dst, byte(n>>8))
	dst = append(dst, byte(n))
	return dst
}

func Uint32ToBytes(b []byte, n uint32) {
	_ = b[3] // bound checking
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

func BytesToUint32(b []byte) uint32 {
	_ = b[3] // bound checking
	return uint32(b[0])<<24 |
		uint32(b[1])<<16 |
		uint32(b[2])<<8 |
		uint32(b[3])
}

// Resize grows or shrinks b to exactly neededLen bytes.
func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]

	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}

	return b[:neededLen]
}

// CutPadding removes the pad-length octet and the trailing padding from a
// padded payload. length is the full frame payload length.
func CutPadding(payload []byte, length int) ([]byte, bool) {
	if len(payload) == 0 {
		return payload, false
	}

	pad := int(payload[0])
	if pad >= length || len(payload) < length-pad {
		return payload, false
	}

	return payload[1 : length-pad], true
}

// AddPadding pads b with a random pad length and random padding octets,
// prepending the pad-length octet as FlagPadded requires.
func AddPadding(b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9
	nn := len(b)

	b = Resize(b, nn+n)
	copy(b[1:], b[:nn])

	b[0] = uint8(n - 1)

	rand.Read(b[nn+1 : nn+n])

	return b
}

func ToLower(b []byte) []byte {
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] |= 32
		}
	}

	return b
}

package http2

import (
	"sync"
)

// HeaderField represents a decoded header field.
//
// Use AcquireHeaderField to acquire a HeaderField.
type HeaderField struct {
	key, value []byte
	sensible   bool
}

var headerPool = sync.Pool{
	New: func() interface{} {
		return &HeaderField{}
	},
}

// AcquireHeaderField gets a HeaderField from the pool.
func AcquireHeaderField() *HeaderField {
	return headerPool.Get().(*HeaderField)
}

// ReleaseHeaderField puts hf back to the pool.
func ReleaseHeaderField(hf *HeaderField) {
	hf.Reset()
	headerPool.Put(hf)
}

// Reset resets header field values.
func (hf *HeaderField) Reset() {
	hf.key = hf.key[:0]
	hf.value = hf.value[:0]
	hf.sensible = false
}

// Empty returns true if hf doesn't contain any key nor value.
func (hf *HeaderField) Empty() bool {
	return len(hf.key) == 0 && len(hf.value) == 0
}

// CopyTo copies the HeaderField to `other`.
func (hf *HeaderField) CopyTo(other *HeaderField) {
	other.key = append(other.key[:0], hf.key...)
	other.value = append(other.value[:0], hf.value...)
	other.sensible = hf.sensible
}

// Set sets the key and value.
func (hf *HeaderField) Set(k, v string) {
	hf.key = append(hf.key[:0], k...)
	hf.value = append(hf.value[:0], v...)
}

// SetBytes sets the key and value from byte slices.
func (hf *HeaderField) SetBytes(k, v []byte) {
	hf.key = append(hf.key[:0], k...)
	hf.value = append(hf.value[:0], v...)
}

// SetKey ...
func (hf *HeaderField) SetKey(k string) {
	hf.key = append(hf.key[:0], k...)
}

// SetValue ...
func (hf *HeaderField) SetValue(v string) {
	hf.value = append(hf.value[:0], v...)
}

// Key returns the key as a string.
func (hf *HeaderField) Key() string {
	return string(hf.key)
}

// Value returns the value as a string.
func (hf *HeaderField) Value() string {
	return string(hf.value)
}

// KeyBytes ...
func (hf *HeaderField) KeyBytes() []byte {
	return hf.key
}

// ValueBytes ...
func (hf *HeaderField) ValueBytes() []byte {
	return hf.value
}

// IsPseudo returns true if the field is a pseudo-header field.
func (hf *HeaderField) IsPseudo() bool {
	return len(hf.key) > 0 && hf.key[0] == ':'
}

// IsSensible returns whether the field must skip the compression tables.
func (hf *HeaderField) IsSensible() bool {
	return hf.sensible
}

// SetSensible marks the field as never-indexed.
func (hf *HeaderField) SetSensible(value bool) {
	hf.sensible = value
}

// Size returns the header field size as RFC 7541 specifies.
//
// https://tools.ietf.org/html/rfc7541#section-4.1
func (hf *HeaderField) Size() int {
	return len(hf.key) + len(hf.value) + 32
}

// AppendBytes appends the header representation of hf to dst.
func (hf *HeaderField) AppendBytes(dst []byte) []byte {
	dst = append(dst, hf.key...)
	dst = append(dst, ':', ' ')
	dst = append(dst, hf.value...)
	return dst
}

// String returns a string representation of the header field.
func (hf *HeaderField) String() string {
	return string(hf.AppendBytes(nil))
}

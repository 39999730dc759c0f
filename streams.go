package http2

import (
	"sort"
	"sync"
)

// Streams is the connection's stream registry, ordered by stream id.
//
// The connection inserts and deletes; streams themselves only read.
type Streams struct {
	mu   sync.RWMutex
	list []*Stream
}

func (strms *Streams) Insert(s *Stream) {
	strms.mu.Lock()
	defer strms.mu.Unlock()

	i := sort.Search(len(strms.list), func(i int) bool {
		return strms.list[i].id >= s.id
	})

	if i == len(strms.list) {
		strms.list = append(strms.list, s)
	} else {
		strms.list = append(strms.list[:i+1], strms.list[i:]...)
		strms.list[i] = s
	}
}

func (strms *Streams) Del(id uint32) *Stream {
	strms.mu.Lock()
	defer strms.mu.Unlock()

	i := sort.Search(len(strms.list), func(i int) bool {
		return strms.list[i].id >= id
	})

	if i < len(strms.list) && strms.list[i].id == id {
		strm := strms.list[i]
		strms.list = append(strms.list[:i], strms.list[i+1:]...)
		return strm
	}

	return nil
}

func (strms *Streams) Get(id uint32) *Stream {
	strms.mu.RLock()
	defer strms.mu.RUnlock()

	i := sort.Search(len(strms.list), func(i int) bool {
		return strms.list[i].id >= id
	})
	if i < len(strms.list) && strms.list[i].id == id {
		return strms.list[i]
	}

	return nil
}

func (strms *Streams) Len() int {
	strms.mu.RLock()
	n := len(strms.list)
	strms.mu.RUnlock()
	return n
}

// Range calls fn for every registered stream in id order until fn
// returns false.
func (strms *Streams) Range(fn func(*Stream) bool) {
	strms.mu.RLock()
	list := append([]*Stream(nil), strms.list...)
	strms.mu.RUnlock()

	for _, strm := range list {
		if !fn(strm) {
			break
		}
	}
}

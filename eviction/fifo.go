// This file implements FIFO eviction.

package eviction

import "container/list"

type fifo struct {
	// order holds ids by first insertion; Front is the oldest.
	order *list.List

	// index points each tracked id at its element in order.
	index map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// OnGet does nothing: reads never change insertion order.
func (f *fifo) OnGet(string) {}

// OnPut appends a new id. A replaced id keeps its original position,
// since an entry is aged by its first insertion.
func (f *fifo) OnPut(id string) {
	if _, ok := f.index[id]; ok {
		return
	}
	f.index[id] = f.order.PushBack(id)
}

// Evict pops the oldest id.
func (f *fifo) Evict() string {
	front := f.order.Front()
	if front == nil {
		return ""
	}
	id := f.order.Remove(front).(string)
	delete(f.index, id)
	return id
}

// Remove forgets an id that was removed explicitly or expired.
func (f *fifo) Remove(id string) {
	if el, ok := f.index[id]; ok {
		f.order.Remove(el)
		delete(f.index, id)
	}
}

func (f *fifo) Reset() {
	f.order.Init()
	clear(f.index)
}

func (f *fifo) Len() int {
	return f.order.Len()
}

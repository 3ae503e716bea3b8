package shard

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/sharecache/eviction"
)

func TestCOWStoreSnapshotIsStable(t *testing.T) {
	s := NewCOWStore[int]()
	s.Put("a", 1)
	s.Put("b", 2)

	snap := s.Snapshot()
	s.Delete("a")
	s.Put("c", 3)

	assert.Len(t, snap, 2)
	assert.Equal(t, 1, snap["a"])
	assert.Equal(t, 2, s.Size())

	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Delete("missing")
	assert.Equal(t, 2, s.Size())

	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.Len(t, snap, 2)
}

func TestCOWStoreConcurrentReaders(t *testing.T) {
	s := NewCOWStore[int]()
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				mu.Lock()
				s.Put(fmt.Sprintf("k-%d-%d", i, j), j)
				mu.Unlock()
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = len(s.Snapshot())
				s.Get("k-0-0")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Size())
}

func TestFNVSelectorIsStable(t *testing.T) {
	sel := FNVSelector{}
	assert.Equal(t, 0, sel.Index("anything", 1))

	idx := sel.Index("some-id", 8)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 8)
	assert.Equal(t, idx, sel.Index("some-id", 8))
}

func TestSplit(t *testing.T) {
	n, per := Split(128, 4)
	assert.Equal(t, 4, n)
	assert.Equal(t, 32, per)

	n, per = Split(10, 4)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, per)

	n, per = Split(2, 8)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, per)

	n, per = Split(0, 0)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, per)
}

func TestNewShard(t *testing.T) {
	sh := NewShard[string](eviction.FIFO, 3)
	assert.Equal(t, 3, sh.Capacity)
	assert.Equal(t, 0, sh.Store.Size())
	assert.Equal(t, 0, sh.Eviction.Len())
}

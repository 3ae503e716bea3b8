package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicyType(t *testing.T) {
	p, err := ParsePolicyType("")
	require.NoError(t, err)
	assert.Equal(t, LRU, p)

	p, err = ParsePolicyType("FIFO")
	require.NoError(t, err)
	assert.Equal(t, FIFO, p)

	_, err = ParsePolicyType("LFU")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := NewEvictionPolicy(LRU, 2)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("c")

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestLRUNeverDropsOnItsOwn(t *testing.T) {
	p := NewEvictionPolicy(LRU, 1)
	p.OnPut("a")
	p.OnPut("b")
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "a", p.Evict())
}

func TestFIFOIgnoresReads(t *testing.T) {
	p := NewEvictionPolicy(FIFO, 2)
	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a")

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestRemoveAndReset(t *testing.T) {
	for _, pt := range []PolicyType{LRU, FIFO} {
		t.Run(string(pt), func(t *testing.T) {
			p := NewEvictionPolicy(pt, 4)
			p.OnPut("a")
			p.OnPut("b")
			p.OnPut("c")

			p.Remove("a")
			p.Remove("missing")
			assert.Equal(t, 2, p.Len())
			assert.Equal(t, "b", p.Evict())

			p.Reset()
			assert.Equal(t, 0, p.Len())
			assert.Equal(t, "", p.Evict())
		})
	}
}

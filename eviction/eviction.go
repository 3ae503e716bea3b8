package eviction

import "github.com/cockroachdb/errors"

/*
This file defines how a shard decides which entry to drop when its population
goes over the cap.
*/

/*
Policy is the set of rules every eviction strategy follows. A Policy only keeps
ordering metadata about ids; the shard owns the entries and calls these methods
while holding its write lock, so implementations need no locking of their own.
*/
type Policy interface {

	// OnGet is called when a live entry is read.
	// LRU moves the id to the most-recently-used position; FIFO ignores it.
	OnGet(string)

	// OnPut is called when an entry is inserted or replaced.
	OnPut(string)

	// Remove drops an id that left the shard for any reason other than Evict.
	Remove(string)

	// Evict picks the next victim and forgets it.
	// It returns "" when nothing is tracked.
	Evict() string

	// Reset forgets every tracked id.
	Reset()

	// Len is the number of tracked ids.
	Len() int
}

// PolicyType identifies a supported eviction strategy.
type PolicyType string

const (
	// LRU evicts the entry that has not been read or written for the longest time.
	LRU PolicyType = "LRU"

	// FIFO evicts the oldest inserted entry regardless of reads.
	FIFO PolicyType = "FIFO"
)

// ErrUnknownPolicy is returned by ParsePolicyType for unsupported names.
var ErrUnknownPolicy = errors.New("unknown eviction policy")

// ParsePolicyType validates a policy name coming from configuration.
func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(s) {
	case LRU, "":
		return LRU, nil
	case FIFO:
		return FIFO, nil
	default:
		return "", errors.Wrapf(ErrUnknownPolicy, "%q", s)
	}
}

// NewEvictionPolicy creates the policy for one shard holding at most capacity entries.
func NewEvictionPolicy(t PolicyType, capacity int) Policy {
	switch t {
	case LRU:
		return newLRU(capacity)
	case FIFO:
		return newFIFO()
	default:
		panic("unknown eviction policy")
	}
}

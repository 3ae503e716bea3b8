package types

// RemovalCause tells why an entry left the keyed store.
type RemovalCause int

const (
	// CauseExplicit is a caller-initiated single-key removal.
	CauseExplicit RemovalCause = iota
	// CauseReplaced is an entry overwritten by a Put under the same id.
	CauseReplaced
	// CauseCleared is a caller-initiated removal of every entry.
	CauseCleared
	// CauseExpired is a removal because now >= ExpiresAt.
	CauseExpired
	// CauseCapacity is a removal because the population exceeded its cap.
	CauseCapacity
)

// WasEvicted reports whether the store removed the entry on its own.
// Only these removals need a synthesized DELETE event; the others are
// reported at the call site.
func (c RemovalCause) WasEvicted() bool {
	return c == CauseExpired || c == CauseCapacity
}

func (c RemovalCause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseReplaced:
		return "replaced"
	case CauseCleared:
		return "cleared"
	case CauseExpired:
		return "expired"
	case CauseCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

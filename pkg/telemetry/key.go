// Package telemetry provides allocation-free instrumentation for hot pipeline
// paths: a fixed-size ring of timestamped events, a table of signed counters,
// and a text renderer for both.
//
// Every event and counter is addressed by a [Key], a single integer that
// packs a small id, an optional secondary value, and a flag marking the value
// as a name to be looked up at render time rather than a plain number.
package telemetry

const (
	// ValueShift is the stride between value buckets in an encoded key.
	// It also bounds ids to [0, ValueShift).
	ValueShift = 1 << 10

	// MaxValue is the exclusive upper bound for encoded values.
	MaxValue = 1 << 17

	// MappedFlag marks a key whose value names an entry in the name table.
	MappedFlag Key = 1 << 28
)

// Key is an encoded (id, value, mapped) triple.
type Key int32

// Encode packs id, value and the mapped flag into one key.
// Inputs outside [0, ValueShift) and [0, MaxValue) are not checked.
func Encode(id, value int, mapped bool) Key {
	k := Key(id + value*ValueShift) //nolint:gosec // domain bounded by caller contract.
	if mapped {
		k |= MappedFlag
	}

	return k
}

// Decode unpacks a key produced by [Encode].
func Decode(k Key) (id, value int, mapped bool) {
	mapped = k&MappedFlag != 0
	unflagged := int(k &^ MappedFlag)

	return unflagged % ValueShift, unflagged / ValueShift, mapped
}

// ID returns the id component.
func (k Key) ID() int { return int(k&^MappedFlag) % ValueShift }

// Value returns the value component.
func (k Key) Value() int { return int(k&^MappedFlag) / ValueShift }

// Mapped reports whether the value should be resolved through a name table.
func (k Key) Mapped() bool { return k&MappedFlag != 0 }

// HasValue reports whether the key carries a value or the mapped flag.
func (k Key) HasValue() bool { return k >= ValueShift }

package slm

// BigramBuffer is a decoded slice of bigram records for one predecessor
// word, including the trailing sentinel record (spec.md §3, §4.2). Index i
// in [0, Len()) is a real follower; index Len() is the sentinel, present
// only so that the cumulative trigram-entry subtraction for the last real
// follower has a "next" value to subtract from.
//
// A BigramBuffer is a value, not a shared reference (spec.md §9 design
// note): it is a thin header over the records decoded from a byte range
// returned by BinaryLoader, in the same "buffers are values" shape as
// kho-fslm/sorted.go's transitions slices.
type BigramBuffer struct {
	records []BigramRecord
	// used marks whether this buffer was consulted since the last
	// start-of-utterance sweep; BufferCache owns this flag (spec.md §4.3).
	used bool
}

// newBigramBuffer wraps a decoded records slice, which must include the
// trailing sentinel.
func newBigramBuffer(records []BigramRecord) BigramBuffer {
	return BigramBuffer{records: records}
}

// Len returns the number of real followers, i.e. excluding the sentinel.
func (b *BigramBuffer) Len() int {
	if len(b.records) == 0 {
		return 0
	}
	return len(b.records) - 1
}

// Record returns the record at index i, where i may be Len() to reach the
// sentinel (spec.md §4.4's "b.which_follower + 1" successor lookup).
func (b *BigramBuffer) Record(i int) BigramRecord { return b.records[i] }

// Find performs an O(log n) binary search for wordId among the real
// (non-sentinel) followers. Follower ids are required to be unique and
// ascending within the slice (spec.md §4.2); Find itself does not check
// this; assertSorted below does, once, when the slice is loaded.
func (b *BigramBuffer) Find(wordId WordId) (index int, ok bool) {
	n := b.Len()
	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo)/2
		w := WordId(b.records[mid].WordId)
		switch {
		case w < wordId:
			lo = mid + 1
		case w > wordId:
			hi = mid
		default:
			return mid, true
		}
	}
	return 0, false
}

// assertSorted verifies the strictly-increasing-follower-id invariant
// (spec.md §8 item 1). Called by BufferCache when it loads a slice, not on every Find, to
// keep queries on the hot path cheap.
func (b *BigramBuffer) assertSorted() bool {
	for i := 1; i < b.Len(); i++ {
		if b.records[i-1].WordId >= b.records[i].WordId {
			return false
		}
	}
	return true
}

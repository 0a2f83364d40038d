package slm

// TrigramBuffer is a decoded slice of trigram records for one (w1,w2)
// history, sorted ascending by follower WordId (spec.md §3, §4.2). Unlike
// BigramBuffer there is no sentinel: trigram counts come from the segment
// table / bigram successor-entry arithmetic (spec.md §4.4), not from
// subtracting within the trigram section itself.
type TrigramBuffer struct {
	records []TrigramRecord
}

func newTrigramBuffer(records []TrigramRecord) TrigramBuffer {
	return TrigramBuffer{records: records}
}

// Len returns the number of trigram followers in this slice.
func (b *TrigramBuffer) Len() int { return len(b.records) }

// Record returns the record at index i.
func (b *TrigramBuffer) Record(i int) TrigramRecord { return b.records[i] }

// Find performs an O(log n) binary search for wordId.
func (b *TrigramBuffer) Find(wordId WordId) (index int, ok bool) {
	lo, hi := 0, len(b.records)
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

func (b *TrigramBuffer) assertSorted() bool {
	for i := 1; i < len(b.records); i++ {
		if b.records[i-1].WordId >= b.records[i].WordId {
			return false
		}
	}
	return true
}

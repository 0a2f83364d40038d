package slm

// SegmentIndex recovers the full cumulative trigram start index for a
// bigram record from its 16-bit FirstTrigramEntry low bits plus a
// power-of-two-strided segment table (spec.md §3, §4.4, GLOSSARY). The
// table has one entry per 1<<LogStride global bigram positions, holding the
// high-order bits of that segment's starting cumulative trigram offset.
//
// No teacher analogue exists for this indirection (kho-fslm's finite-state
// model has no segment table); grounded directly on spec.md's formula and
// the cumulative-offset-table idiom used for byte-range indexing in
// orijtech-zoekt's ngramoffset.go.
type SegmentIndex struct {
	table     []uint32
	logStride uint
}

func newSegmentIndex(table []uint32, logStride uint) SegmentIndex {
	return SegmentIndex{table: table, logStride: logStride}
}

// Start returns the cumulative trigram entry at which globalBigramPos's
// trigram followers begin. globalBigramPos is the bigram's absolute index
// in the whole-model bigram array (first_bigram_entry[w1] + which_follower);
// firstTrigramEntry is that same bigram record's low-bits field.
func (s SegmentIndex) Start(globalBigramPos uint32, firstTrigramEntry uint16) uint32 {
	return s.table[globalBigramPos>>s.logStride] + uint32(firstTrigramEntry)
}

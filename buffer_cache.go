package slm

import "fmt"

// HistoryPair is a (w1, w2) bigram history, used both as the trigram
// buffer cache key here and as half of ProbCache's history keys.
type HistoryPair struct {
	W1, W2 WordId
}

type bigramSlot struct {
	loaded bool
	used   bool
	buf    BigramBuffer
}

// BufferCache is the demand-paging layer between BinaryLoader and the
// query engine (spec.md §4.3): one slot per unigram for bigram followers,
// swept by an epoch "used" flag at utterance boundaries, plus an unbounded
// per-utterance map of decoded trigram follower slices. Grounded on
// kho-fslm/sorted.go's on-demand transitions decoding, generalized from
// "decode on first touch, keep for the process lifetime" to the two-tier,
// utterance-scoped scheme spec.md §4.3 requires.
type BufferCache struct {
	loader *BinaryLoader

	bigramSlots []bigramSlot
	trigrams    map[HistoryPair]TrigramBuffer

	bigramMisses  int
	trigramMisses int
}

func newBufferCache(loader *BinaryLoader) *BufferCache {
	return &BufferCache{
		loader:      loader,
		bigramSlots: make([]bigramSlot, loader.NumUnigrams()),
		trigrams:    make(map[HistoryPair]TrigramBuffer),
	}
}

// Start begins a new utterance: the bigram epoch flag is cleared so Stop
// can tell which slots went untouched, and any trigram buffers left from
// the previous utterance are dropped (spec.md §4.3: trigram buffers are
// not expected to outlive the utterance that first touched them).
func (c *BufferCache) Start() {
	for i := range c.bigramSlots {
		c.bigramSlots[i].used = false
	}
	if len(c.trigrams) > 0 {
		c.trigrams = make(map[HistoryPair]TrigramBuffer)
	}
}

// Stop evicts bigram slots that were never touched during the utterance
// just finished, freeing their decoded record slices, and drops every
// trigram buffer. Bigram slots touched at least once are kept resident,
// under the assumption that cross-utterance reuse of common predecessor
// words is likely (spec.md §4.3, §8 item 4).
func (c *BufferCache) Stop() {
	for i := range c.bigramSlots {
		if c.bigramSlots[i].loaded && !c.bigramSlots[i].used {
			c.bigramSlots[i] = bigramSlot{}
		}
	}
	if len(c.trigrams) > 0 {
		c.trigrams = make(map[HistoryPair]TrigramBuffer)
	}
}

// Bigram returns the decoded bigram-follower slice for predecessor w,
// loading it from the mapped file on first touch.
func (c *BufferCache) Bigram(w WordId) (*BigramBuffer, error) {
	if int(w) < 0 || int(w) >= len(c.bigramSlots) {
		return nil, fmt.Errorf("%w: word id %d out of range", ErrUnknownWord, w)
	}
	slot := &c.bigramSlots[w]
	slot.used = true
	if slot.loaded {
		return &slot.buf, nil
	}

	start, count := c.loader.Unigrams().BigramRange(w)
	// +1 for the trailing sentinel record (spec.md §3).
	raw, err := c.loader.LoadBuffer(c.loader.BigramOffset()+uint64(start)*uint64(bigramRecordSize), (int(count)+1)*bigramRecordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: bigram slice for word %d: %v", ErrBufferLoad, w, err)
	}
	records, err := decodeBigramRecords(raw, c.loader.ByteOrder())
	if err != nil {
		return nil, err
	}
	buf := newBigramBuffer(records)
	if !buf.assertSorted() {
		return nil, fmt.Errorf("%w: bigram followers of word %d are not sorted", ErrMalformedModel, w)
	}
	slot.buf = buf
	slot.loaded = true
	c.bigramMisses++
	return &slot.buf, nil
}

// Trigram returns the decoded trigram-follower slice for history (w1,w2).
// ok is false when w1 has no bigram record for w2 at all, meaning w2 has
// zero trigram followers under w1 and the query should fall back directly
// to bigram back-off (spec.md §4.4). This is also exactly the condition
// QueryEngine needs to decide whether find_bigram(w1,w2) "exists" for the
// trigram-miss back-off step, so callers may treat a false ok as both.
func (c *BufferCache) Trigram(w1, w2 WordId) (buf *TrigramBuffer, ok bool, err error) {
	if cached, present := c.trigrams[HistoryPair{w1, w2}]; present {
		return &cached, true, nil
	}

	bigBuf, err := c.Bigram(w1)
	if err != nil {
		return nil, false, err
	}
	idx, found := bigBuf.Find(w2)
	if !found {
		return nil, false, nil
	}

	unigram := c.loader.Unigrams().Get(w1)
	globalPos := unigram.FirstBigramEntry + uint32(idx)
	rec := bigBuf.Record(idx)
	next := bigBuf.Record(idx + 1)

	segs := c.loader.Segments()
	start := segs.Start(globalPos, rec.FirstTrigramEntry)
	end := segs.Start(globalPos+1, next.FirstTrigramEntry)
	count := end - start

	raw, err := c.loader.LoadBuffer(c.loader.TrigramOffset()+uint64(start)*uint64(trigramRecordSize), int(count)*trigramRecordSize)
	if err != nil {
		return nil, false, fmt.Errorf("%w: trigram slice for history (%d,%d): %v", ErrBufferLoad, w1, w2, err)
	}
	records, err := decodeTrigramRecords(raw, c.loader.ByteOrder())
	if err != nil {
		return nil, false, err
	}
	tbuf := newTrigramBuffer(records)
	if !tbuf.assertSorted() {
		return nil, false, fmt.Errorf("%w: trigram followers of history (%d,%d) are not sorted", ErrMalformedModel, w1, w2)
	}
	c.trigrams[HistoryPair{w1, w2}] = tbuf
	c.trigramMisses++
	return &tbuf, true, nil
}

func (c *BufferCache) BigramMisses() int  { return c.bigramMisses }
func (c *BufferCache) TrigramMisses() int { return c.trigramMisses }

package slm

// HistoryTriple is a (w1, w2, w3) trigram query, used as the trigram score
// cache key.
type HistoryTriple struct {
	W1, W2, W3 WordId
}

// ProbCache holds the two bounded LRUs spec.md §4.4 describes sitting in
// front of BufferCache: one memoizing the bigram record found for a
// (w1,w2) history (skipping BigramBuffer.Find on repeat queries), one
// memoizing the fully-resolved trigram score for a (w1,w2,w3) query
// (skipping the whole back-off computation). Sized independently via
// Options.BigramCacheSize/TrigramCacheSize.
type ProbCache struct {
	bigramRecords *lru[HistoryPair, BigramRecord]
	trigramScores *lru[HistoryTriple, Weight]
}

func newProbCache(opts Options) *ProbCache {
	return &ProbCache{
		bigramRecords: newLRU[HistoryPair, BigramRecord](opts.BigramCacheSize),
		trigramScores: newLRU[HistoryTriple, Weight](opts.TrigramCacheSize),
	}
}

func (c *ProbCache) GetBigramRecord(w1, w2 WordId) (BigramRecord, bool) {
	return c.bigramRecords.Get(HistoryPair{w1, w2})
}

func (c *ProbCache) PutBigramRecord(w1, w2 WordId, rec BigramRecord) {
	c.bigramRecords.Put(HistoryPair{w1, w2}, rec)
}

func (c *ProbCache) GetTrigramScore(w1, w2, w3 WordId) (Weight, bool) {
	return c.trigramScores.Get(HistoryTriple{w1, w2, w3})
}

func (c *ProbCache) PutTrigramScore(w1, w2, w3 WordId, score Weight) {
	c.trigramScores.Put(HistoryTriple{w1, w2, w3}, score)
}

// Clear empties both caches, called at utterance boundaries when
// Options.ClearCachesAfterUtterance is set.
func (c *ProbCache) Clear() {
	c.bigramRecords.Clear()
	c.trigramScores.Clear()
}

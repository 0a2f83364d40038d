package slm

import (
	"fmt"
	"io"
)

// DumpStats writes a human-readable summary of the loaded model to w: table
// sizes, cache occupancy, and miss/hit counters. Grounded on kho-fslm's
// basic.go Graphviz debug helper (iterate the model and fmt.Fprintf a
// textual report); this module has no finite-state topology to render, so
// the dump is tabular instead of a graph.
func (e *QueryEngine) DumpStats(w io.Writer) {
	fmt.Fprintf(w, "vocabulary: %d words\n", e.loader.NumUnigrams())
	fmt.Fprintf(w, "max depth: %d\n", e.maxDepth)
	fmt.Fprintf(w, "bigram probs: %d  trigram probs: %d  trigram backoffs: %d\n",
		len(e.loader.BigramProbTable()), len(e.loader.TrigramProbTable()), len(e.loader.TrigramBackoffTable()))
	loadedBigrams := 0
	for _, s := range e.bufferCache.bigramSlots {
		if s.loaded {
			loadedBigrams++
		}
	}
	fmt.Fprintf(w, "loaded bigram buffers: %d\n", loadedBigrams)
	fmt.Fprintf(w, "loaded trigram buffers: %d\n", len(e.bufferCache.trigrams))
	fmt.Fprintf(w, "bigram cache: %d/%d  trigram cache: %d/%d\n",
		e.probCache.bigramRecords.Len(), e.opts.BigramCacheSize,
		e.probCache.trigramScores.Len(), e.opts.TrigramCacheSize)
	fmt.Fprintf(w, "bigram misses: %d  trigram misses: %d  trigram hits: %d\n",
		e.bigramMisses, e.trigramMisses, e.trigramHits)
	fmt.Fprintf(w, "buffer cache misses -- bigram: %d  trigram: %d\n",
		e.bufferCache.BigramMisses(), e.bufferCache.TrigramMisses())
}

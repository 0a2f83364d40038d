package slm

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
)

// QueryEngine implements P(w), P(w|w'), P(w|w'',w') with Katz back-off
// (spec.md §4.4), composing BufferCache/ProbCache/BinaryLoader. Grounded on
// kho-fslm/sorted.go's Model.Prob dispatch-by-length shape, generalized
// from its single flat transitions table to the two-cache, demand-paged
// design spec.md §4 requires.
type QueryEngine struct {
	loader      *BinaryLoader
	bufferCache *BufferCache
	probCache   *ProbCache
	opts        Options

	maxDepth int

	bigramMisses  int
	trigramMisses int
	trigramHits   int

	queryLog     *bufio.Writer
	queryLogFile *os.File

	smear *SmearEngine
}

// Allocate opens the model file and constructs the engine, the
// allocate()/deallocate() pairing of spec.md §6's public API.
func Allocate(path string, opts Options) (*QueryEngine, error) {
	opts = opts.withDefaults()
	loader, err := Open(path, opts)
	if err != nil {
		return nil, err
	}

	maxDepth := loader.MaxDepth()
	if opts.MaxDepth > 0 && opts.MaxDepth < maxDepth {
		maxDepth = opts.MaxDepth
	}

	e := &QueryEngine{
		loader:      loader,
		bufferCache: newBufferCache(loader),
		probCache:   newProbCache(opts),
		opts:        opts,
		maxDepth:    maxDepth,
	}

	if opts.QueryLogFile != "" {
		f, err := os.Create(opts.QueryLogFile)
		if err != nil {
			loader.Close()
			return nil, fmt.Errorf("slm: opening query log: %w", err)
		}
		e.queryLogFile = f
		e.queryLog = bufio.NewWriter(f)
	}

	if opts.FullSmear {
		s := newSmearEngine(loader)
		if err := s.BuildSmearInfo(); err != nil {
			e.Deallocate()
			return nil, err
		}
		e.smear = s
	}

	return e, nil
}

// GetSmear implements spec.md §4.5's get_smear. It is a fatal
// ErrUnsupportedArity to call this when Options.FullSmear was not set.
func (e *QueryEngine) GetSmear(ws []WordId) (Weight, error) {
	if e.smear == nil {
		return 0, fmt.Errorf("%w: full_smear is not enabled", ErrUnsupportedArity)
	}
	return e.smear.GetSmear(ws), nil
}

// Deallocate releases the mapped file and flushes/closes the query log.
func (e *QueryEngine) Deallocate() error {
	var err error
	if e.queryLog != nil {
		err = e.queryLog.Flush()
	}
	if e.queryLogFile != nil {
		if cerr := e.queryLogFile.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := e.loader.Close(); err == nil {
		err = cerr
	}
	return err
}

// Start begins an utterance: resets the bigram epoch flag and, if a query
// log is configured, writes the <START_UTT> marker (spec.md §4.4, §6).
func (e *QueryEngine) Start() {
	e.bufferCache.Start()
	if e.queryLog != nil {
		fmt.Fprintln(e.queryLog, "<START_UTT>")
	}
}

// Stop ends an utterance: sweeps unused bigram slots, clears trigram
// buffers, optionally clears the LRU caches, and flushes the query log.
func (e *QueryEngine) Stop() {
	e.bufferCache.Stop()
	if e.opts.ClearCachesAfterUtterance {
		e.probCache.Clear()
	}
	if e.queryLog != nil {
		fmt.Fprintln(e.queryLog, "<END_UTT>")
		if err := e.queryLog.Flush(); err != nil {
			glog.Warningf("slm: flushing query log: %v", err)
		}
	}
}

// WordID resolves a surface word to its WordId. Returns ErrUnknownWord if
// the word is not in the model's vocabulary (spec.md §4.4, §7).
func (e *QueryEngine) WordID(word string) (WordId, error) {
	id := e.loader.Vocab().IdOf(word)
	if id == WordNil {
		return WordNil, fmt.Errorf("%w: %q", ErrUnknownWord, word)
	}
	return id, nil
}

func (e *QueryEngine) isKnown(w WordId) bool {
	return int(w) >= 0 && int(w) < e.loader.NumUnigrams()
}

func (e *QueryEngine) hasBigrams() bool  { return len(e.loader.BigramProbTable()) > 0 }
func (e *QueryEngine) hasTrigrams() bool { return e.maxDepth >= 3 && len(e.loader.TrigramProbTable()) > 0 }

func (e *QueryEngine) MaxDepth() int   { return e.maxDepth }
func (e *QueryEngine) Vocabulary() *Vocab { return e.loader.Vocab() }

func (e *QueryEngine) BigramMisses() int  { return e.bigramMisses }
func (e *QueryEngine) TrigramMisses() int { return e.trigramMisses }
func (e *QueryEngine) TrigramHits() int   { return e.trigramHits }

// GetProbability dispatches on len(ws) and returns P(last | rest) in the
// host log base (spec.md §4.4). Querying with more words than MaxDepth is
// a fatal ErrUnsupportedArity.
func (e *QueryEngine) GetProbability(ws []WordId) (Weight, error) {
	if e.queryLog != nil {
		e.logQuery(ws)
	}
	switch {
	case len(ws) == 0:
		return 0, fmt.Errorf("%w: empty word sequence", ErrUnsupportedArity)
	case len(ws) == 1:
		return e.unigramProb(ws[0])
	case len(ws) == 2:
		if len(ws) > e.maxDepth {
			return 0, fmt.Errorf("%w: bigram query exceeds max depth %d", ErrUnsupportedArity, e.maxDepth)
		}
		return e.bigramProb(ws[0], ws[1])
	case len(ws) == 3:
		if len(ws) > e.maxDepth {
			return 0, fmt.Errorf("%w: trigram query exceeds max depth %d", ErrUnsupportedArity, e.maxDepth)
		}
		return e.trigramProb(ws[0], ws[1], ws[2])
	default:
		return 0, fmt.Errorf("%w: sequence length %d", ErrUnsupportedArity, len(ws))
	}
}

func (e *QueryEngine) logQuery(ws []WordId) {
	words := make([]string, len(ws))
	v := e.loader.Vocab()
	for i, w := range ws {
		words[i] = v.StringOf(w)
	}
	fmt.Fprintln(e.queryLog, strings.Join(words, " "))
}

func (e *QueryEngine) unigramProb(w WordId) (Weight, error) {
	if !e.isKnown(w) {
		return 0, fmt.Errorf("%w: id %d", ErrUnknownWord, w)
	}
	return e.loader.Unigrams().Get(w).LogProb, nil
}

// bigramProb implements spec.md §4.4's Bigram algorithm.
func (e *QueryEngine) bigramProb(w1, w2 WordId) (Weight, error) {
	if !e.hasBigrams() || !e.isKnown(w1) {
		return e.unigramProb(w2)
	}

	rec, found, err := e.findBigramRecord(w1, w2)
	if err != nil {
		return 0, err
	}
	if found {
		return Weight(e.loader.BigramProbTable()[rec.ProbabilityId]), nil
	}

	e.bigramMisses++
	p2, err := e.unigramProb(w2)
	if err != nil {
		return 0, err
	}
	return e.loader.Unigrams().Get(w1).LogBackoff + p2, nil
}

// findBigramRecord is find_bigram(w1,w2) from spec.md §4.4: a ProbCache
// lookup, falling through to BufferCache on miss and populating the cache
// when a record is found. found is false exactly when w2 is not a
// tabulated follower of w1 (no bigram-miss counter side effect here; that
// belongs to the caller, matching which callers spec.md's prose credits
// with incrementing it).
func (e *QueryEngine) findBigramRecord(w1, w2 WordId) (rec BigramRecord, found bool, err error) {
	if rec, ok := e.probCache.GetBigramRecord(w1, w2); ok {
		return rec, true, nil
	}
	if !e.hasBigrams() || !e.isKnown(w1) {
		return BigramRecord{}, false, nil
	}
	bigBuf, err := e.bufferCache.Bigram(w1)
	if err != nil {
		return BigramRecord{}, false, err
	}
	idx, ok := bigBuf.Find(w2)
	if !ok {
		return BigramRecord{}, false, nil
	}
	rec = bigBuf.Record(idx)
	e.probCache.PutBigramRecord(w1, w2, rec)
	return rec, true, nil
}

// trigramProb implements spec.md §4.4's Trigram algorithm.
func (e *QueryEngine) trigramProb(w1, w2, w3 WordId) (Weight, error) {
	if !e.hasTrigrams() || !e.isKnown(w1) {
		return e.bigramProb(w2, w3)
	}

	if score, ok := e.probCache.GetTrigramScore(w1, w2, w3); ok {
		return score, nil
	}

	tbuf, bigramExists, err := e.bufferCache.Trigram(w1, w2)
	if err != nil {
		return 0, err
	}
	if bigramExists {
		if idx, ok := tbuf.Find(w3); ok {
			rec := tbuf.Record(idx)
			score := Weight(e.loader.TrigramProbTable()[rec.ProbabilityId])
			e.trigramHits++
			e.probCache.PutTrigramScore(w1, w2, w3, score)
			return score, nil
		}
	}

	e.trigramMisses++
	p32, err := e.bigramProb(w2, w3)
	if err != nil {
		return 0, err
	}
	score := p32
	if bigramExists {
		bigRec, ok, err := e.findBigramRecord(w1, w2)
		if err != nil {
			return 0, err
		}
		if ok {
			score = Weight(e.loader.TrigramBackoffTable()[bigRec.BackoffId]) + p32
		}
	}
	e.probCache.PutTrigramScore(w1, w2, w3, score)
	return score, nil
}

// GetBackoff returns the stored back-off weight of the innermost context
// matching ws, or log-one if no tabulated context matches (spec.md §9's
// Open Question resolution: unlike the original, this does not
// unconditionally return log-one).
func (e *QueryEngine) GetBackoff(ws []WordId) (Weight, error) {
	switch len(ws) {
	case 0:
		return WeightLog1, nil
	case 1:
		if !e.isKnown(ws[0]) {
			return 0, fmt.Errorf("%w: id %d", ErrUnknownWord, ws[0])
		}
		return e.loader.Unigrams().Get(ws[0]).LogBackoff, nil
	case 2:
		w1, w2 := ws[0], ws[1]
		rec, found, err := e.findBigramRecord(w1, w2)
		if err != nil {
			return 0, err
		}
		if found {
			return Weight(e.loader.TrigramBackoffTable()[rec.BackoffId]), nil
		}
		return e.GetBackoff(ws[1:])
	default:
		return 0, fmt.Errorf("%w: backoff context length %d", ErrUnsupportedArity, len(ws))
	}
}

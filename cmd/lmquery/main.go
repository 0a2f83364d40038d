// Command lmquery scores whitespace-tokenized sentences from stdin against
// a compiled trigram model, one line per sentence, printing corpus-level
// counts, total log10 probability and perplexity (no per-sentence
// scores). Adapted from
// kho-fslm's cmd/score, generalized from its finite-state Model.NextI
// dispatch to slm.QueryEngine's explicit unigram/bigram/trigram calls, and
// extended with a -replay flag exercising the determinism property named
// in the engine's design notes.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime/pprof"

	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kastnerkyle/cmusphinx"
)

func main() {
	var args struct {
		Model string `name:"model" usage:"path to the compiled trigram model"`
	}
	cpuprofile := flag.String("cpuprofile", "", "path to write CPU profile")
	trigramCacheSize := flag.Int("trigram_cache_size", 0, "trigram score LRU capacity (0 = default)")
	bigramCacheSize := flag.Int("bigram_cache_size", 0, "bigram record LRU capacity (0 = default)")
	clearCaches := flag.Bool("clear_caches_after_utterance", false, "reset LRUs at the end of every sentence")
	queryLog := flag.String("query_log_file", "", "optional path to receive a <START_UTT>/<END_UTT> transcript")
	replay := flag.Bool("replay", false, "requery every sentence a second time and verify identical scores")
	easy.ParseFlagsAndArgs(&args)

	if *cpuprofile != "" {
		w := easy.MustCreate(*cpuprofile)
		pprof.StartCPUProfile(w)
		defer pprof.StopCPUProfile()
	}

	opts := slm.DefaultOptions()
	if *trigramCacheSize > 0 {
		opts.TrigramCacheSize = *trigramCacheSize
	}
	if *bigramCacheSize > 0 {
		opts.BigramCacheSize = *bigramCacheSize
	}
	opts.ClearCachesAfterUtterance = *clearCaches
	opts.QueryLogFile = *queryLog

	engine, err := slm.Allocate(args.Model, opts)
	if err != nil {
		glog.Fatalf("loading model %s: %v", args.Model, err)
	}
	defer engine.Deallocate()

	var corpus [][]string
	glog.Infof("loading corpus took %v", easy.Timed(func() { corpus = loadCorpus(os.Stdin) }))

	var totalLog10 float64
	var numWords, numSents, numOOVs int

	elapsed := easy.Timed(func() {
		totalLog10, numWords, numSents, numOOVs = scoreCorpus(engine, corpus, *replay)
	})
	glog.Infof("scoring took %v", elapsed)

	if numWords > 0 {
		fmt.Printf("%d sents, %d words, %d OOVs\n", numSents, numWords, numOOVs)
		fmt.Printf("logprob=%g ppl=%g ppl1=%g\n",
			totalLog10,
			math.Exp(-totalLog10/float64(numSents+numWords)*math.Log(10)),
			math.Exp(-totalLog10/float64(numWords)*math.Log(10)))
	}

	engine.DumpStats(os.Stderr)
}

func loadCorpus(r *os.File) (sents [][]string) {
	in := bufio.NewScanner(r)
	for in.Scan() {
		var sent []string
		for _, w := range bytes.Fields(in.Bytes()) {
			sent = append(sent, string(w))
		}
		if sent != nil {
			sents = append(sents, sent)
		}
	}
	if err := in.Err(); err != nil {
		glog.Fatalf("reading corpus: %v", err)
	}
	return sents
}

// scoreCorpus queries each sentence as a sliding window of up to
// engine.MaxDepth() words, accumulating log10 total for perplexity
// reporting the way kho-fslm's ScoreCorpus does.
func scoreCorpus(engine *slm.QueryEngine, corpus [][]string, replay bool) (totalLog10 float64, numWords, numSents, numOOVs int) {
	logMath := slm.NewLogMath(math.E)
	for _, sent := range corpus {
		numSents++
		score, oovs := scoreSentence(engine, sent)
		numOOVs += oovs
		numWords += len(sent)
		totalLog10 += logMath.ToLog10(score)

		if replay {
			replayed, _ := scoreSentence(engine, sent)
			if replayed != score {
				glog.Warningf("non-deterministic score for sentence %v: %g vs %g", sent, score, replayed)
			}
		}
	}
	return totalLog10, numWords, numSents, numOOVs
}

func scoreSentence(engine *slm.QueryEngine, sent []string) (total slm.Weight, numOOVs int) {
	engine.Start()
	defer engine.Stop()

	var history []slm.WordId
	for _, w := range sent {
		id, err := engine.WordID(w)
		if err != nil {
			numOOVs++
			continue
		}
		history = append(history, id)
		window := history
		if max := engine.MaxDepth(); len(window) > max {
			window = window[len(window)-max:]
		}
		p, err := engine.GetProbability(window)
		if err != nil {
			glog.Warningf("scoring %q: %v", w, err)
			continue
		}
		total += p
	}
	return total, numOOVs
}

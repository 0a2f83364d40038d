package slm

// Options carries the configuration knobs from spec.md §6. These are
// constructor parameters to Open, not global flags — kho-fslm's own
// constructors (NewBuilder(vocab, bos, eos), DumpHashed(scale)) take their
// tunables as arguments rather than reading package-level flag state, and
// cmd/ binaries are the layer that turns `flag`/`easy` values into an
// Options (see cmd/lmquery).
type Options struct {
	// TrigramCacheSize is the capacity of the history→final-score LRU.
	TrigramCacheSize int
	// BigramCacheSize is the capacity of the history→bigram-record LRU.
	BigramCacheSize int
	// ClearCachesAfterUtterance resets both LRUs at Stop when true.
	ClearCachesAfterUtterance bool

	// ApplyLanguageWeightAndWip enables baking LanguageWeight and
	// WordInsertionProbability into tabulated log probabilities at load
	// time (spec.md §4.1).
	ApplyLanguageWeightAndWip bool
	LanguageWeight            float64
	WordInsertionProbability  float64

	// UnigramWeight blends the unigram distribution toward uniform at load
	// time (spec.md §4.1).
	UnigramWeight float64

	// FullSmear enables the SmearEngine.
	FullSmear bool

	// MaxDepth clamps the model's n-gram order; 0 means "use the file's
	// own maximum" (spec.md §6).
	MaxDepth int

	// QueryLogFile, if non-empty, receives a <START_UTT>/<END_UTT>-bracketed
	// transcript of every queried word sequence (spec.md §6, §8).
	QueryLogFile string

	// HostLogBase is the log base every returned Weight is expressed in.
	// Defaults to natural log (math.E) when zero.
	HostLogBase float64
}

// DefaultOptions returns the knob defaults named in spec.md §6.
func DefaultOptions() Options {
	return Options{
		TrigramCacheSize:          100000,
		BigramCacheSize:           50000,
		ClearCachesAfterUtterance: false,
		ApplyLanguageWeightAndWip: false,
		LanguageWeight:            1.0,
		WordInsertionProbability:  1.0,
		UnigramWeight:             1.0,
		FullSmear:                 false,
		MaxDepth:                  0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TrigramCacheSize == 0 {
		o.TrigramCacheSize = d.TrigramCacheSize
	}
	if o.BigramCacheSize == 0 {
		o.BigramCacheSize = d.BigramCacheSize
	}
	if o.LanguageWeight == 0 {
		o.LanguageWeight = d.LanguageWeight
	}
	if o.WordInsertionProbability == 0 {
		o.WordInsertionProbability = d.WordInsertionProbability
	}
	if o.UnigramWeight == 0 {
		o.UnigramWeight = d.UnigramWeight
	}
	if o.HostLogBase == 0 {
		o.HostLogBase = 2.718281828459045
	}
	return o
}

package slm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

// smearMagic tags the sidecar file written by WriteSmearInfo (spec.md
// §4.5, §6).
const smearMagic uint32 = 0xC0CAC01A

// smearByteOrder is fixed, unlike the model file's self-describing order:
// the sidecar is always produced and consumed by this same build, so there
// is no cross-toolchain byte-order concern to accommodate.
var smearByteOrder = binary.LittleEndian

func smearKey(w1, w2 WordId) uint64 {
	return uint64(uint32(w1))<<32 | uint64(uint32(w2))
}

// SmearEngine builds or loads the per-unigram and per-bigram smear scalars
// described in spec.md §4.5 and serves GetSmear queries. It keeps its own
// BufferCache rather than sharing the QueryEngine's, since a build pass
// touches every bigram/trigram slice in the model and there is no
// utterance boundary to sweep against.
type SmearEngine struct {
	loader  *BinaryLoader
	cache   *BufferCache
	logMath LogMath

	unigramSmear []Weight
	bigramSmear  map[uint64]Weight
}

func newSmearEngine(loader *BinaryLoader) *SmearEngine {
	return &SmearEngine{
		loader:  loader,
		cache:   newBufferCache(loader),
		logMath: loader.LogMath(),
	}
}

// NewSmearEngine wraps an already-open BinaryLoader, for callers (such as
// cmd/lmsmear) that build a sidecar file offline without a full
// QueryEngine.
func NewSmearEngine(loader *BinaryLoader) (*SmearEngine, error) {
	return newSmearEngine(loader), nil
}

// GetSmear implements spec.md §4.5's smear(ws) lookup.
func (s *SmearEngine) GetSmear(ws []WordId) Weight {
	switch {
	case len(ws) == 0:
		return Weight(1.0)
	case len(ws) == 1:
		return s.unigramSmear[ws[0]]
	default:
		w1, w2 := ws[len(ws)-2], ws[len(ws)-1]
		if v, ok := s.bigramSmear[smearKey(w1, w2)]; ok {
			return v
		}
		return s.unigramSmear[w2]
	}
}

// probBigram resolves P(j|i) the same way QueryEngine.bigramProb does
// (tabulated value, else back-off), independent of QueryEngine so
// BuildSmearInfo can run before a QueryEngine exists (e.g. offline, from
// cmd/lmsmear).
func (s *SmearEngine) probBigram(i, j WordId) (Weight, error) {
	if len(s.loader.BigramProbTable()) == 0 || int(i) >= s.loader.NumUnigrams() {
		return s.loader.Unigrams().Get(j).LogProb, nil
	}
	buf, err := s.cache.Bigram(i)
	if err != nil {
		return 0, err
	}
	if idx, ok := buf.Find(j); ok {
		rec := buf.Record(idx)
		return Weight(s.loader.BigramProbTable()[rec.ProbabilityId]), nil
	}
	return s.loader.Unigrams().Get(i).LogBackoff + s.loader.Unigrams().Get(j).LogProb, nil
}

// BuildSmearInfo runs the dense double-summation described in spec.md
// §4.5. Throughout, "p(x) = exp(log_prob(x))" and every "log" in the
// formulas is the natural log of that linear value — independent of
// Options.HostLogBase, so the smear scalars are reproducible regardless of
// what base the rest of the engine reports probabilities in (see
// DESIGN.md's Open Question decisions).
func (s *SmearEngine) BuildSmearInfo() error {
	n := s.loader.NumUnigrams()
	unigrams := s.loader.Unigrams()

	toLinear := func(w Weight) float64 { return s.logMath.ToLinear(w) }

	var sum0, r0 float64
	for i := 0; i < n; i++ {
		p := toLinear(unigrams.Get(WordId(i)).LogProb)
		if p <= 0 {
			continue
		}
		lp := math.Log(p)
		sum0 += p * lp
		r0 += p * lp * lp
	}

	unigramSmear := make([]Weight, n)
	avgArr := make([]float64, n)
	numArr := make([]float64, n)
	denArr := make([]float64, n)

	for i := 0; i < n; i++ {
		start, count := unigrams.BigramRange(WordId(i))
		_ = start
		if count == 0 {
			continue
		}
		buf, err := s.cache.Bigram(WordId(i))
		if err != nil {
			return err
		}
		backoffLin := toLinear(unigrams.Get(WordId(i)).LogBackoff)

		var numI, denI float64
		for idx := 0; idx < buf.Len(); idx++ {
			rec := buf.Record(idx)
			j := WordId(rec.WordId)
			pBg := toLinear(Weight(s.loader.BigramProbTable()[rec.ProbabilityId]))
			pj := toLinear(unigrams.Get(j).LogProb)
			pBb := backoffLin * pj
			if pBg <= 0 || pBb <= 0 || pj <= 0 {
				continue
			}
			logPj := math.Log(pj)
			numI += (pBg*math.Log(pBg) - pBb*math.Log(pBb)) * logPj
			denI += (pBg - pBb) * logPj
		}
		if backoffLin > 0 {
			numI += backoffLin * (math.Log(backoffLin)*sum0 + r0)
		}
		avgI := denI + backoffLin*sum0
		denI += backoffLin * r0

		avgArr[i] = avgI
		numArr[i] = numI
		denArr[i] = denI
		if denI != 0 {
			unigramSmear[i] = Weight(numI / denI)
		}
	}

	bigramSmear := make(map[uint64]Weight)
	for i := 0; i < n; i++ {
		_, count := unigrams.BigramRange(WordId(i))
		if count == 0 {
			continue
		}
		buf, err := s.cache.Bigram(WordId(i))
		if err != nil {
			return err
		}
		for idx := 0; idx < buf.Len(); idx++ {
			rec := buf.Record(idx)
			k := WordId(rec.WordId)

			tbuf, exists, err := s.cache.Trigram(WordId(i), k)
			if err != nil {
				return err
			}
			if !exists || tbuf.Len() == 0 {
				bigramSmear[smearKey(WordId(i), k)] = unigramSmear[k]
				continue
			}

			backoffLinIK := toLinear(Weight(s.loader.TrigramBackoffTable()[rec.BackoffId]))
			var num, den float64
			for tIdx := 0; tIdx < tbuf.Len(); tIdx++ {
				trec := tbuf.Record(tIdx)
				m := WordId(trec.WordId)
				pTg := toLinear(Weight(s.loader.TrigramProbTable()[trec.ProbabilityId]))
				pBgKM, err := s.probBigram(k, m)
				if err != nil {
					return err
				}
				pBg := toLinear(pBgKM)
				pBt := backoffLinIK * pBg
				pu := toLinear(unigrams.Get(m).LogProb)
				if pTg <= 0 || pBt <= 0 || pu <= 0 {
					continue
				}
				logPu := math.Log(pu)
				num += (pTg*math.Log(pTg) - pBt*math.Log(pBt)) * logPu
				den += (pTg - pBt) * logPu * logPu
			}
			if backoffLinIK > 0 {
				num += backoffLinIK * (math.Log(backoffLinIK)*avgArr[k] - numArr[k])
			}
			den += backoffLinIK * denArr[k]

			if den != 0 {
				bigramSmear[smearKey(WordId(i), k)] = Weight(num / den)
			} else {
				bigramSmear[smearKey(WordId(i), k)] = unigramSmear[k]
			}
		}
	}

	s.unigramSmear = unigramSmear
	s.bigramSmear = bigramSmear
	return nil
}

type followerSmear struct {
	word  WordId
	smear Weight
}

// WriteSmearInfo persists the built smear tables using the layout named in
// spec.md §4.5: magic, vocab size, N unigram smears, then per unigram a
// follower count and (word_id, smear) pairs sorted by follower id for a
// deterministic byte-exact round trip (spec.md §8 item 7).
func (s *SmearEngine) WriteSmearInfo(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	n := len(s.unigramSmear)

	if err = binary.Write(w, smearByteOrder, smearMagic); err != nil {
		return err
	}
	if err = binary.Write(w, smearByteOrder, int32(n)); err != nil {
		return err
	}
	for _, v := range s.unigramSmear {
		if err = binary.Write(w, smearByteOrder, float32(v)); err != nil {
			return err
		}
	}

	grouped := make([][]followerSmear, n)
	for key, v := range s.bigramSmear {
		i := WordId(key >> 32)
		k := WordId(uint32(key))
		grouped[i] = append(grouped[i], followerSmear{k, v})
	}
	for i := range grouped {
		sort.Slice(grouped[i], func(a, b int) bool { return grouped[i][a].word < grouped[i][b].word })
		if err = binary.Write(w, smearByteOrder, int32(len(grouped[i]))); err != nil {
			return err
		}
		for _, fs := range grouped[i] {
			if err = binary.Write(w, smearByteOrder, int32(fs.word)); err != nil {
				return err
			}
			if err = binary.Write(w, smearByteOrder, float32(fs.smear)); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// ReadSmearInfo loads a sidecar written by WriteSmearInfo. A magic or
// vocabulary-size mismatch is reported as ErrSmearMismatch so the caller
// can fall back to BuildSmearInfo (spec.md §7).
func ReadSmearInfo(path string, vocabSize int) (unigramSmear []Weight, bigramSmear map[uint64]Weight, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic uint32
	if err := binary.Read(r, smearByteOrder, &magic); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSmearMismatch, err)
	}
	if magic != smearMagic {
		return nil, nil, fmt.Errorf("%w: bad magic 0x%x", ErrSmearMismatch, magic)
	}
	var n int32
	if err := binary.Read(r, smearByteOrder, &n); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSmearMismatch, err)
	}
	if int(n) != vocabSize {
		return nil, nil, fmt.Errorf("%w: vocabulary size %d != %d", ErrSmearMismatch, n, vocabSize)
	}

	unigramSmear = make([]Weight, n)
	for i := range unigramSmear {
		var v float32
		if err := binary.Read(r, smearByteOrder, &v); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSmearMismatch, err)
		}
		unigramSmear[i] = Weight(v)
	}

	bigramSmear = make(map[uint64]Weight)
	for i := int32(0); i < n; i++ {
		var count int32
		if err := binary.Read(r, smearByteOrder, &count); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSmearMismatch, err)
		}
		for c := int32(0); c < count; c++ {
			var wid int32
			var v float32
			if err := binary.Read(r, smearByteOrder, &wid); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrSmearMismatch, err)
			}
			if err := binary.Read(r, smearByteOrder, &v); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrSmearMismatch, err)
			}
			bigramSmear[smearKey(WordId(i), WordId(wid))] = Weight(v)
		}
	}
	return unigramSmear, bigramSmear, nil
}

// LoadOrBuildSmearInfo tries path first, falling back to a fresh build on
// any mismatch (spec.md §7's "reported so callers fall back to the
// build-from-scratch path").
func (s *SmearEngine) LoadOrBuildSmearInfo(path string) error {
	if path != "" {
		if u, b, err := ReadSmearInfo(path, s.loader.NumUnigrams()); err == nil {
			s.unigramSmear, s.bigramSmear = u, b
			return nil
		}
	}
	return s.BuildSmearInfo()
}

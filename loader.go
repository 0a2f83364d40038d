package slm

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"syscall"

	"github.com/golang/glog"
)

// fileMagic identifies a model file written by this package's layout.
// Endianness is self-describing: Open reads the four magic bytes with both
// byte orders and keeps whichever interpretation matches, the classic
// "magic number picks the order" trick (cf. PNG/ELF headers) rather than a
// separate boolean flag that could disagree with the bytes around it.
const fileMagic uint32 = 0x534c4d31 // "1MLS" / "SLM1" depending on order

const headerFields = 19 // number of uint32 header fields, including magic
const headerSize = headerFields * 4

// header mirrors spec.md §6's description of what BinaryLoader.Open
// consumes: magic, format tag, n-gram counts, log_bigram_segment_size, and
// the byte offsets of every section. Kept as explicit offsets (rather than
// requiring the reader to derive them from counts) so LoadBuffer and the
// section readers never need to recompute layout math twice.
type header struct {
	magic                     uint32
	formatVersion             uint32
	maxDepth                  uint32
	logBigramSegmentSize      uint32
	numUnigrams               uint32
	numBigrams                uint32
	numTrigrams               uint32
	numBigramProbs            uint32
	numTrigramProbs           uint32
	numTrigramBackoffs        uint32
	numSegments               uint32
	wordListOffset            uint32
	unigramTableOffset        uint32
	bigramProbTableOffset     uint32
	trigramProbTableOffset    uint32
	trigramBackoffTableOffset uint32
	segmentTableOffset        uint32
	bigramSectionOffset       uint32
	trigramSectionOffset      uint32
}

// BinaryLoader opens a compiled model file, keeps it mapped for the engine's
// lifetime, and exposes both the tables read fully into memory and
// load_buffer-style random-access reads of the bigram/trigram sections
// (spec.md §4.1). Grounded on kho-fslm/model.go's MappedFile/OpenMappedFile
// and the header()/parseHeader() split in sorted.go.
type BinaryLoader struct {
	file    *os.File
	data    []byte
	order   binary.ByteOrder
	hdr     header
	logMath LogMath

	vocab     *Vocab
	unigrams  UnigramTable
	bigramP   []float32
	trigramP  []float32
	trigramB  []float32
	segments  SegmentIndex
}

// Open parses the header, word list, unigram table, probability/backoff
// tables, and segment table of the model at path, and keeps the file
// mapped for subsequent LoadBuffer calls. opts controls the
// language-weight/wip/unigram-weight blending done to the tabulated
// probabilities during this call (spec.md §4.1).
func Open(path string, opts Options) (*BinaryLoader, error) {
	opts = opts.withDefaults()
	logMath := NewLogMath(opts.HostLogBase)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	size := stat.Size()
	if size < headerSize {
		f.Close()
		return nil, fmt.Errorf("%w: file too small for header", ErrMalformedModel)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: mmap: %v", ErrMalformedModel, err)
	}

	order, err := detectByteOrder(data[:4])
	if err != nil {
		syscall.Munmap(data)
		f.Close()
		return nil, err
	}

	hdr, err := parseHeader(data, order)
	if err != nil {
		syscall.Munmap(data)
		f.Close()
		return nil, err
	}
	if err := hdr.validate(int64(len(data))); err != nil {
		syscall.Munmap(data)
		f.Close()
		return nil, err
	}

	l := &BinaryLoader{file: f, data: data, order: order, hdr: hdr, logMath: logMath}

	if err := l.loadVocab(); err != nil {
		l.Close()
		return nil, err
	}
	if err := l.loadUnigrams(opts); err != nil {
		l.Close()
		return nil, err
	}
	if err := l.loadProbTables(opts); err != nil {
		l.Close()
		return nil, err
	}
	if err := l.loadSegments(); err != nil {
		l.Close()
		return nil, err
	}

	if glog.V(1) {
		glog.Infof("slm: loaded %d unigrams, %d bigrams, %d trigrams from %s",
			hdr.numUnigrams, hdr.numBigrams, hdr.numTrigrams, path)
	}
	return l, nil
}

func detectByteOrder(magicBytes []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(magicBytes) == fileMagic {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(magicBytes) == fileMagic {
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: bad magic", ErrMalformedModel)
}

func parseHeader(data []byte, order binary.ByteOrder) (header, error) {
	if len(data) < headerSize {
		return header{}, fmt.Errorf("%w: truncated header", ErrMalformedModel)
	}
	u32 := make([]uint32, headerFields)
	for i := range u32 {
		u32[i] = order.Uint32(data[i*4 : i*4+4])
	}
	return header{
		magic:                     u32[0],
		formatVersion:             u32[1],
		maxDepth:                  u32[2],
		logBigramSegmentSize:      u32[3],
		numUnigrams:               u32[4],
		numBigrams:                u32[5],
		numTrigrams:               u32[6],
		numBigramProbs:            u32[7],
		numTrigramProbs:           u32[8],
		numTrigramBackoffs:        u32[9],
		numSegments:               u32[10],
		wordListOffset:            u32[11],
		unigramTableOffset:        u32[12],
		bigramProbTableOffset:     u32[13],
		trigramProbTableOffset:    u32[14],
		trigramBackoffTableOffset: u32[15],
		segmentTableOffset:        u32[16],
		bigramSectionOffset:       u32[17],
		trigramSectionOffset:      u32[18],
	}, nil
}

func (h header) validate(fileSize int64) error {
	if h.maxDepth < 1 || h.maxDepth > 3 {
		return fmt.Errorf("%w: max_depth %d out of range", ErrMalformedModel, h.maxDepth)
	}
	if h.numUnigrams == 0 {
		return fmt.Errorf("%w: empty unigram table", ErrMalformedModel)
	}
	offsets := []uint32{
		h.wordListOffset, h.unigramTableOffset, h.bigramProbTableOffset,
		h.trigramProbTableOffset, h.trigramBackoffTableOffset, h.segmentTableOffset,
		h.bigramSectionOffset, h.trigramSectionOffset,
	}
	for _, o := range offsets {
		if int64(o) > fileSize {
			return fmt.Errorf("%w: section offset %d beyond end of file (%d)", ErrMalformedModel, o, fileSize)
		}
	}
	return nil
}

func (l *BinaryLoader) loadVocab() error {
	off := uint64(l.hdr.wordListOffset)
	words := make([]string, l.hdr.numUnigrams)
	for i := range words {
		if off+4 > uint64(len(l.data)) {
			return fmt.Errorf("%w: truncated word list", ErrMalformedModel)
		}
		n := uint64(l.order.Uint32(l.data[off : off+4]))
		off += 4
		if off+n > uint64(len(l.data)) {
			return fmt.Errorf("%w: truncated word list entry", ErrMalformedModel)
		}
		words[i] = string(l.data[off : off+n])
		off += n
	}
	l.vocab = newVocabFromWordList(words)
	return nil
}

const unigramRecordSize = 16 // log10_prob f32, log10_backoff f32, first_bigram_entry u32, word_id u32

func (l *BinaryLoader) loadUnigrams(opts Options) error {
	off := uint64(l.hdr.unigramTableOffset)
	n := uint64(l.hdr.numUnigrams)
	need := n * unigramRecordSize
	if off+need > uint64(len(l.data)) {
		return fmt.Errorf("%w: truncated unigram table", ErrMalformedModel)
	}
	table := make(UnigramTable, n)
	for i := uint64(0); i < n; i++ {
		b := l.data[off+i*unigramRecordSize:]
		log10P := math.Float32frombits(l.order.Uint32(b[0:4]))
		log10B := math.Float32frombits(l.order.Uint32(b[4:8]))
		firstBigram := l.order.Uint32(b[8:12])
		wordId := l.order.Uint32(b[12:16])

		p := l.logMath.FromLog10(log10P)
		p = blendUnigramWeight(p, l.logMath, opts.UnigramWeight, n)
		if opts.ApplyLanguageWeightAndWip {
			p = Weight(opts.LanguageWeight*float64(p) + math.Log(opts.WordInsertionProbability))
		}
		bo := l.logMath.FromLog10(log10B)

		table[i] = UnigramRecord{LogProb: p, LogBackoff: bo, FirstBigramEntry: firstBigram, WordId: wordId}
	}
	if !table.checkMonotone() {
		return fmt.Errorf("%w: first_bigram_entry is not monotone", ErrMalformedModel)
	}
	l.unigrams = table
	return nil
}

// blendUnigramWeight applies the CMU-Sphinx-style unigram-weight
// interpolation toward a uniform distribution over the vocabulary
// (spec.md §4.1's "renormalization step"): the linear probability is
// pulled toward 1/|V| by (1-uw) before being converted back to the host
// log base.
func blendUnigramWeight(p Weight, lm LogMath, uw float64, vocabSize uint64) Weight {
	if uw == 1.0 {
		return p
	}
	linear := lm.ToLinear(p)
	blended := uw*linear + (1-uw)/float64(vocabSize)
	return lm.FromLinear(blended)
}

func (l *BinaryLoader) loadProbTables(opts Options) error {
	readTable := func(offset uint32, count uint32, applyLwWip bool) ([]float32, error) {
		off := uint64(offset)
		need := uint64(count) * 4
		if off+need > uint64(len(l.data)) {
			return nil, fmt.Errorf("%w: truncated probability table", ErrMalformedModel)
		}
		raw, err := decodeFloat32Table(l.data[off:off+need], l.order)
		if err != nil {
			return nil, err
		}
		out := make([]float32, len(raw))
		logWip := math.Log(opts.WordInsertionProbability)
		for i, log10v := range raw {
			w := l.logMath.FromLog10(log10v)
			if applyLwWip && opts.ApplyLanguageWeightAndWip {
				w = Weight(opts.LanguageWeight*float64(w) + logWip)
			}
			out[i] = float32(w)
		}
		return out, nil
	}

	var err error
	if l.bigramP, err = readTable(l.hdr.bigramProbTableOffset, l.hdr.numBigramProbs, true); err != nil {
		return err
	}
	if l.hdr.maxDepth >= 3 {
		if l.trigramP, err = readTable(l.hdr.trigramProbTableOffset, l.hdr.numTrigramProbs, true); err != nil {
			return err
		}
		// Back-off weights are not probabilities: language-weight/wip
		// blending is deliberately not applied to them.
		if l.trigramB, err = readTable(l.hdr.trigramBackoffTableOffset, l.hdr.numTrigramBackoffs, false); err != nil {
			return err
		}
	}
	return nil
}

func (l *BinaryLoader) loadSegments() error {
	off := uint64(l.hdr.segmentTableOffset)
	need := uint64(l.hdr.numSegments) * 4
	if off+need > uint64(len(l.data)) {
		return fmt.Errorf("%w: truncated segment table", ErrMalformedModel)
	}
	table, err := decodeUint32Table(l.data[off:off+need], l.order)
	if err != nil {
		return err
	}
	l.segments = newSegmentIndex(table, uint(l.hdr.logBigramSegmentSize))
	return nil
}

// LoadBuffer is the only operation that may block (spec.md §5): a
// random-access read of the mapped bigram/trigram section. Since the file
// is memory-mapped, this never actually performs I/O on the hot path after
// the first page fault — it is a bounds-checked slice, matching the design
// note in spec.md §9 that mmap makes load_buffer "a pointer-and-length
// slice".
func (l *BinaryLoader) LoadBuffer(offset uint64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset+uint64(length) > uint64(len(l.data)) {
		return nil, fmt.Errorf("%w: range [%d,%d) beyond mapped file (%d bytes)", ErrBufferLoad, offset, offset+uint64(length), len(l.data))
	}
	return l.data[offset : offset+uint64(length)], nil
}

func (l *BinaryLoader) Close() error {
	var err error
	if l.data != nil {
		err = syscall.Munmap(l.data)
		l.data = nil
	}
	if l.file != nil {
		if cerr := l.file.Close(); err == nil {
			err = cerr
		}
		l.file = nil
	}
	return err
}

func (l *BinaryLoader) Vocab() *Vocab                   { return l.vocab }
func (l *BinaryLoader) Unigrams() UnigramTable           { return l.unigrams }
func (l *BinaryLoader) BigramProbTable() []float32       { return l.bigramP }
func (l *BinaryLoader) TrigramProbTable() []float32      { return l.trigramP }
func (l *BinaryLoader) TrigramBackoffTable() []float32   { return l.trigramB }
func (l *BinaryLoader) Segments() SegmentIndex           { return l.segments }
func (l *BinaryLoader) MaxDepth() int                    { return int(l.hdr.maxDepth) }
func (l *BinaryLoader) BigEndian() bool                  { return l.order == binary.BigEndian }
func (l *BinaryLoader) ByteOrder() binary.ByteOrder      { return l.order }
func (l *BinaryLoader) LogBigramSegmentSize() uint       { return uint(l.hdr.logBigramSegmentSize) }
func (l *BinaryLoader) BigramOffset() uint64             { return uint64(l.hdr.bigramSectionOffset) }
func (l *BinaryLoader) TrigramOffset() uint64            { return uint64(l.hdr.trigramSectionOffset) }
func (l *BinaryLoader) LogMath() LogMath                 { return l.logMath }
func (l *BinaryLoader) NumUnigrams() int                 { return int(l.hdr.numUnigrams) }

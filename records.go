package slm

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// BigramRecord is one packed 8-byte entry of the on-disk bigram section
// (spec.md §3). Records for a given predecessor are contiguous and sorted
// ascending by WordId, with a trailing sentinel record (WordId is
// meaningless on the sentinel; only FirstTrigramEntry is read from it).
type BigramRecord struct {
	WordId            uint16 // follower word id
	ProbabilityId     uint16 // index into the bigram probability table
	BackoffId         uint16 // index into the trigram back-off table
	FirstTrigramEntry uint16 // low bits of the cumulative trigram index
}

// TrigramRecord is one packed 4-byte entry of the on-disk trigram section,
// sorted ascending by WordId within a (w1,w2) slice.
type TrigramRecord struct {
	WordId        uint16
	ProbabilityId uint16
}

const (
	bigramRecordSize  = int(unsafe.Sizeof(BigramRecord{}))
	trigramRecordSize = int(unsafe.Sizeof(TrigramRecord{}))
)

func init() {
	if bigramRecordSize != 8 {
		panic(fmt.Sprintf("slm: BigramRecord must be 8 bytes, got %d", bigramRecordSize))
	}
	if trigramRecordSize != 4 {
		panic(fmt.Sprintf("slm: TrigramRecord must be 4 bytes, got %d", trigramRecordSize))
	}
}

// decodeBigramRecords interprets raw as a []BigramRecord. When order is
// binary.NativeEndian itself, this is a zero-copy reinterpret of the
// (mmap'd) bytes, the same reflect.SliceHeader trick kho-fslm/sorted.go's
// unsafeParseBinary uses. For any other order value, including
// binary.LittleEndian or binary.BigEndian on a host of that same order,
// each record is decoded into a freshly allocated slice; BinaryLoader
// always passes one of those two, so model buffers are always copied.
func decodeBigramRecords(raw []byte, order binary.ByteOrder) ([]BigramRecord, error) {
	if len(raw)%bigramRecordSize != 0 {
		return nil, fmt.Errorf("%w: bigram buffer length %d not a multiple of %d", ErrMalformedModel, len(raw), bigramRecordSize)
	}
	n := len(raw) / bigramRecordSize
	if order == binary.NativeEndian {
		return unsafeBigramSlice(raw, n), nil
	}
	out := make([]BigramRecord, n)
	for i := range out {
		b := raw[i*bigramRecordSize:]
		out[i] = BigramRecord{
			WordId:            order.Uint16(b[0:2]),
			ProbabilityId:     order.Uint16(b[2:4]),
			BackoffId:         order.Uint16(b[4:6]),
			FirstTrigramEntry: order.Uint16(b[6:8]),
		}
	}
	return out, nil
}

// decodeTrigramRecords is decodeBigramRecords's counterpart for the
// trigram section.
func decodeTrigramRecords(raw []byte, order binary.ByteOrder) ([]TrigramRecord, error) {
	if len(raw)%trigramRecordSize != 0 {
		return nil, fmt.Errorf("%w: trigram buffer length %d not a multiple of %d", ErrMalformedModel, len(raw), trigramRecordSize)
	}
	n := len(raw) / trigramRecordSize
	if order == binary.NativeEndian {
		return unsafeTrigramSlice(raw, n), nil
	}
	out := make([]TrigramRecord, n)
	for i := range out {
		b := raw[i*trigramRecordSize:]
		out[i] = TrigramRecord{
			WordId:        order.Uint16(b[0:2]),
			ProbabilityId: order.Uint16(b[2:4]),
		}
	}
	return out, nil
}

func unsafeBigramSlice(raw []byte, n int) []BigramRecord {
	rawHeader := (*reflect.SliceHeader)(unsafe.Pointer(&raw))
	var out []BigramRecord
	outHeader := (*reflect.SliceHeader)(unsafe.Pointer(&out))
	outHeader.Data = rawHeader.Data
	outHeader.Len = n
	outHeader.Cap = n
	return out
}

func unsafeTrigramSlice(raw []byte, n int) []TrigramRecord {
	rawHeader := (*reflect.SliceHeader)(unsafe.Pointer(&raw))
	var out []TrigramRecord
	outHeader := (*reflect.SliceHeader)(unsafe.Pointer(&out))
	outHeader.Data = rawHeader.Data
	outHeader.Len = n
	outHeader.Cap = n
	return out
}

// decodeFloat32Table interprets raw as a []float32 table (the
// bigram/trigram probability and back-off tables, spec.md §3). The values
// are always decoded into a freshly allocated slice.
func decodeFloat32Table(raw []byte, order binary.ByteOrder) ([]float32, error) {
	const size = 4
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: float32 table length %d not a multiple of %d", ErrMalformedModel, len(raw), size)
	}
	n := len(raw) / size
	out := make([]float32, n)
	for i := range out {
		bits := order.Uint32(raw[i*size:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// decodeUint32Table interprets raw as a []uint32 table (the trigram segment
// table, spec.md §3).
func decodeUint32Table(raw []byte, order binary.ByteOrder) ([]uint32, error) {
	const size = 4
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: uint32 table length %d not a multiple of %d", ErrMalformedModel, len(raw), size)
	}
	n := len(raw) / size
	out := make([]uint32, n)
	for i := range out {
		out[i] = order.Uint32(raw[i*size:])
	}
	return out, nil
}

package slm

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeBigramRecordsNativeEndian(t *testing.T) {
	want := []BigramRecord{
		{WordId: 1, ProbabilityId: 2, BackoffId: 3, FirstTrigramEntry: 4},
		{WordId: 5, ProbabilityId: 6, BackoffId: 7, FirstTrigramEntry: 8},
	}
	var buf bytes.Buffer
	for _, r := range want {
		binary.Write(&buf, binary.NativeEndian, r)
	}
	got, err := decodeBigramRecords(buf.Bytes(), binary.NativeEndian)
	if err != nil {
		t.Fatalf("decodeBigramRecords: %v", err)
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("decodeBigramRecords = %+v, want %+v", got, want)
	}
}

func TestDecodeBigramRecordsSwappedEndian(t *testing.T) {
	other := binary.BigEndian
	if binary.NativeEndian == binary.BigEndian {
		other = binary.LittleEndian
	}
	var buf bytes.Buffer
	binary.Write(&buf, other, BigramRecord{WordId: 9, ProbabilityId: 8, BackoffId: 7, FirstTrigramEntry: 6})
	got, err := decodeBigramRecords(buf.Bytes(), other)
	if err != nil {
		t.Fatalf("decodeBigramRecords: %v", err)
	}
	want := BigramRecord{WordId: 9, ProbabilityId: 8, BackoffId: 7, FirstTrigramEntry: 6}
	if len(got) != 1 || got[0] != want {
		t.Errorf("decodeBigramRecords(swapped) = %+v, want [%+v]", got, want)
	}
}

func TestDecodeBigramRecordsRejectsShortBuffer(t *testing.T) {
	if _, err := decodeBigramRecords([]byte{1, 2, 3}, binary.LittleEndian); err == nil {
		t.Errorf("expected error for length not a multiple of record size")
	}
}

func TestDecodeFloat32Table(t *testing.T) {
	values := []float32{-0.5, 1.25, 0}
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	got, err := decodeFloat32Table(buf.Bytes(), binary.LittleEndian)
	if err != nil {
		t.Fatalf("decodeFloat32Table: %v", err)
	}
	for i, v := range values {
		if got[i] != v {
			t.Errorf("got[%d] = %v, want %v", i, got[i], v)
		}
	}
}

func TestDecodeUint32Table(t *testing.T) {
	values := []uint32{0, 42, 1 << 20}
	var buf bytes.Buffer
	for _, v := range values {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	got, err := decodeUint32Table(buf.Bytes(), binary.LittleEndian)
	if err != nil {
		t.Fatalf("decodeUint32Table: %v", err)
	}
	for i, v := range values {
		if got[i] != v {
			t.Errorf("got[%d] = %v, want %v", i, got[i], v)
		}
	}
}

package slm

import "testing"

func makeBigramBuffer(followerIds ...uint16) BigramBuffer {
	records := make([]BigramRecord, len(followerIds)+1)
	for i, id := range followerIds {
		records[i] = BigramRecord{WordId: id, ProbabilityId: uint16(i)}
	}
	// sentinel
	records[len(followerIds)] = BigramRecord{WordId: 0xFFFF}
	return newBigramBuffer(records)
}

func TestBigramBufferFind(t *testing.T) {
	buf := makeBigramBuffer(2, 5, 9)
	if n := buf.Len(); n != 3 {
		t.Fatalf("Len() = %d, want 3", n)
	}
	for i, id := range []uint16{2, 5, 9} {
		idx, ok := buf.Find(WordId(id))
		if !ok || idx != i {
			t.Errorf("Find(%d) = (%d,%v), want (%d,true)", id, idx, ok, i)
		}
	}
	if _, ok := buf.Find(3); ok {
		t.Errorf("Find(3) unexpectedly found")
	}
	if _, ok := buf.Find(0xFFFF); ok {
		t.Errorf("Find must not match the sentinel")
	}
}

func TestBigramBufferSentinelReachable(t *testing.T) {
	buf := makeBigramBuffer(2, 5)
	rec := buf.Record(buf.Len())
	if rec.WordId != 0xFFFF {
		t.Errorf("Record(Len()) should reach the sentinel, got %+v", rec)
	}
}

func TestBigramBufferEmpty(t *testing.T) {
	buf := newBigramBuffer(nil)
	if buf.Len() != 0 {
		t.Errorf("Len() of empty buffer = %d, want 0", buf.Len())
	}
	if _, ok := buf.Find(0); ok {
		t.Errorf("Find on empty buffer unexpectedly found")
	}
}

func TestBigramBufferAssertSorted(t *testing.T) {
	good := makeBigramBuffer(1, 2, 3)
	if !good.assertSorted() {
		t.Errorf("expected sorted buffer to pass")
	}
	bad := newBigramBuffer([]BigramRecord{{WordId: 3}, {WordId: 1}, {WordId: 0xFFFF}})
	if bad.assertSorted() {
		t.Errorf("expected unsorted buffer to fail")
	}
}

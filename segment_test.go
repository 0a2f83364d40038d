package slm

import "testing"

func TestSegmentIndexStart(t *testing.T) {
	seg := newSegmentIndex([]uint32{0, 100, 250}, 4) // stride = 16 global positions per segment
	cases := []struct {
		globalPos         uint32
		firstTrigramEntry uint16
		want              uint32
	}{
		{0, 5, 5},
		{15, 20, 20},
		{16, 0, 100},
		{32, 10, 260},
	}
	for _, c := range cases {
		got := seg.Start(c.globalPos, c.firstTrigramEntry)
		if got != c.want {
			t.Errorf("Start(%d,%d) = %d, want %d", c.globalPos, c.firstTrigramEntry, got, c.want)
		}
	}
}

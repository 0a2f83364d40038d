package slm

import (
	"math"
	"testing"
)

func TestLogMathRoundTrip(t *testing.T) {
	lm := NewLogMath(math.E)
	for _, p := range []float64{0.001, 0.1, 0.5, 0.9, 1.0} {
		w := lm.FromLinear(p)
		got := lm.ToLinear(w)
		if math.Abs(got-p) > 1e-6 {
			t.Errorf("FromLinear/ToLinear(%g) round trip = %g", p, got)
		}
	}
}

func TestLogMathFromLog10(t *testing.T) {
	lm := NewLogMath(math.E)
	got := lm.FromLog10(-0.30103)
	want := Weight(math.Log(0.5))
	if math.Abs(float64(got-want)) > 1e-4 {
		t.Errorf("FromLog10(-0.30103) = %v, want ~%v", got, want)
	}
}

func TestLogMathOtherBase(t *testing.T) {
	lm := NewLogMath(10)
	got := lm.FromLog10(-1)
	if math.Abs(float64(got)-(-1)) > 1e-9 {
		t.Errorf("FromLog10(-1) in base 10 = %v, want -1", got)
	}
	if math.Abs(lm.ToLinear(got)-0.1) > 1e-9 {
		t.Errorf("ToLinear(%v) = %v, want 0.1", got, lm.ToLinear(got))
	}
}

func TestNewLogMathPanicsOnInvalidBase(t *testing.T) {
	for _, base := range []float64{0, -1, 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewLogMath(%g) did not panic", base)
				}
			}()
			NewLogMath(base)
		}()
	}
}

package slm

import "math"

// Weight is a log-domain probability or back-off weight, expressed in the
// host's log base (spec.md §9's "numeric fidelity" requirement routes every
// conversion through LogMath so the base never drifts). Mirrors
// kho-fslm/basic.go's Weight float32.
type Weight float32

// WeightLog0 is the replacement for log(0): an unrepresentable/absent
// probability. Following kho-fslm/basic.go's convention of a finite
// stand-in rather than -Inf, so back-off sums stay well-defined arithmetic
// instead of propagating NaN the moment two LOG0s are added.
const WeightLog0 Weight = -99

// WeightLog1 is log(1): the neutral element for back-off accumulation.
const WeightLog1 Weight = 0

// LogMath is the single place that knows the host log base and converts
// between it, linear probabilities, and the log10 values stored on disk.
// All probability arithmetic in this package goes through a LogMath value
// (spec.md §9, §4.1) instead of hand-rolling log()/log10() calls at each
// call site.
type LogMath struct {
	// base is the host log base (e.g. math.E for natural log, 10 for
	// log10-as-is, 1.0001 for the flat-fixed-point base some decoders use).
	base float64
	// log10ToHost multiplies a log10 value to re-express it in base.
	log10ToHost float64
	// hostToLog10 is the inverse factor.
	hostToLog10 float64
}

// NewLogMath constructs a LogMath for the given host log base. Panics on a
// non-positive or unit base, which has no well-defined logarithm.
func NewLogMath(base float64) LogMath {
	if base <= 0 || base == 1 {
		panic("slm: NewLogMath: base must be positive and != 1")
	}
	lnBase := math.Log(base)
	return LogMath{
		base:        base,
		log10ToHost: math.Log(10) / lnBase,
		hostToLog10: lnBase / math.Log(10),
	}
}

// Base returns the host log base this LogMath converts to/from.
func (m LogMath) Base() float64 { return m.base }

// FromLog10 re-expresses a log10 value (as stored on disk) in the host
// base.
func (m LogMath) FromLog10(log10 float32) Weight {
	return Weight(float64(log10) * m.log10ToHost)
}

// ToLog10 re-expresses a host-base log value in log10, the inverse of
// FromLog10. cmd/lmquery uses it for its log10 totals and perplexity.
func (m LogMath) ToLog10(w Weight) float64 {
	return float64(w) * m.hostToLog10
}

// ToLinear converts a host-base log value to a linear probability,
// p = base^w.
func (m LogMath) ToLinear(w Weight) float64 {
	return math.Pow(m.base, float64(w))
}

// FromLinear converts a linear probability to a host-base log value,
// w = log_base(p).
func (m LogMath) FromLinear(p float64) Weight {
	return Weight(math.Log(p) / math.Log(m.base))
}

// FromNaturalLog re-expresses a natural-log value (e.g. math.Log(x) used by
// the smear computation's intermediate sums, which always run in natural
// log regardless of host base) in the host base.
func (m LogMath) FromNaturalLog(ln float64) Weight {
	return Weight(ln / math.Log(m.base))
}

package slm

import "testing"

func TestDefaultOptionsWithDefaultsIsStable(t *testing.T) {
	d := DefaultOptions().withDefaults()
	if d.TrigramCacheSize != 100000 || d.BigramCacheSize != 50000 {
		t.Errorf("withDefaults() changed an already-default Options: %+v", d)
	}
	if d.HostLogBase < 2.71828 || d.HostLogBase > 2.71829 {
		t.Errorf("HostLogBase = %v, want math.E", d.HostLogBase)
	}
}

func TestOptionsWithDefaultsFillsZeroFields(t *testing.T) {
	var o Options
	got := o.withDefaults()
	want := DefaultOptions()
	want.HostLogBase = got.HostLogBase // DefaultOptions() leaves this at zero; withDefaults fills it
	if got.TrigramCacheSize != want.TrigramCacheSize {
		t.Errorf("TrigramCacheSize = %d, want %d", got.TrigramCacheSize, want.TrigramCacheSize)
	}
	if got.BigramCacheSize != want.BigramCacheSize {
		t.Errorf("BigramCacheSize = %d, want %d", got.BigramCacheSize, want.BigramCacheSize)
	}
	if got.LanguageWeight != want.LanguageWeight {
		t.Errorf("LanguageWeight = %v, want %v", got.LanguageWeight, want.LanguageWeight)
	}
	if got.WordInsertionProbability != want.WordInsertionProbability {
		t.Errorf("WordInsertionProbability = %v, want %v", got.WordInsertionProbability, want.WordInsertionProbability)
	}
	if got.UnigramWeight != want.UnigramWeight {
		t.Errorf("UnigramWeight = %v, want %v", got.UnigramWeight, want.UnigramWeight)
	}

	// Explicitly-set non-zero fields must survive withDefaults unchanged.
	o2 := Options{TrigramCacheSize: 7, BigramCacheSize: 9}
	got2 := o2.withDefaults()
	if got2.TrigramCacheSize != 7 || got2.BigramCacheSize != 9 {
		t.Errorf("withDefaults overwrote explicit values: %+v", got2)
	}
}

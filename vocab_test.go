package slm

import "testing"

func TestNewVocabFromWordList(t *testing.T) {
	v := newVocabFromWordList([]string{"A", "B", "C"})
	if v.IdOf("B") != WordId(1) {
		t.Errorf("IdOf(B) = %v, want 1", v.IdOf("B"))
	}
	if v.StringOf(WordId(2)) != "C" {
		t.Errorf("StringOf(2) = %q, want C", v.StringOf(WordId(2)))
	}
	if v.IdOf("nonexistent") != WordNil {
		t.Errorf("IdOf(nonexistent) = %v, want WordNil", v.IdOf("nonexistent"))
	}
}

func TestWordResolverSatisfiedByVocab(t *testing.T) {
	var _ WordResolver = newVocabFromWordList([]string{"A"})
}

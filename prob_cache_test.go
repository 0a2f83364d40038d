package slm

import "testing"

func TestProbCacheBigramRecord(t *testing.T) {
	c := newProbCache(DefaultOptions())
	if _, ok := c.GetBigramRecord(1, 2); ok {
		t.Fatalf("expected miss on empty cache")
	}
	rec := BigramRecord{WordId: 2, ProbabilityId: 7}
	c.PutBigramRecord(1, 2, rec)
	got, ok := c.GetBigramRecord(1, 2)
	if !ok || got != rec {
		t.Errorf("GetBigramRecord(1,2) = (%+v,%v), want (%+v,true)", got, ok, rec)
	}
	if _, ok := c.GetBigramRecord(2, 1); ok {
		t.Errorf("history order must matter")
	}
}

func TestProbCacheTrigramScore(t *testing.T) {
	c := newProbCache(DefaultOptions())
	c.PutTrigramScore(1, 2, 3, Weight(-0.5))
	got, ok := c.GetTrigramScore(1, 2, 3)
	if !ok || got != Weight(-0.5) {
		t.Errorf("GetTrigramScore(1,2,3) = (%v,%v), want (-0.5,true)", got, ok)
	}
}

func TestProbCacheClear(t *testing.T) {
	c := newProbCache(DefaultOptions())
	c.PutBigramRecord(1, 2, BigramRecord{})
	c.PutTrigramScore(1, 2, 3, 0)
	c.Clear()
	if _, ok := c.GetBigramRecord(1, 2); ok {
		t.Errorf("expected bigram cache cleared")
	}
	if _, ok := c.GetTrigramScore(1, 2, 3); ok {
		t.Errorf("expected trigram cache cleared")
	}
}

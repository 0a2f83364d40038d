package slm

import "testing"

func TestBufferCacheBigramLoadAndEvict(t *testing.T) {
	loader, err := Open(buildTestModel(t), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer loader.Close()

	c := newBufferCache(loader)
	a := loader.Vocab().IdOf("A")

	c.Start()
	buf, err := c.Bigram(a)
	if err != nil {
		t.Fatalf("Bigram(A): %v", err)
	}
	if buf.Len() != 1 {
		t.Fatalf("Bigram(A).Len() = %d, want 1", buf.Len())
	}
	if c.BigramMisses() != 1 {
		t.Fatalf("BigramMisses() = %d, want 1", c.BigramMisses())
	}

	// Second touch within the same utterance is a slot hit, not a reload.
	if _, err := c.Bigram(a); err != nil {
		t.Fatalf("Bigram(A) second call: %v", err)
	}
	if c.BigramMisses() != 1 {
		t.Errorf("BigramMisses() after cached hit = %d, want still 1", c.BigramMisses())
	}

	c.Stop() // A was used this utterance, so its slot survives
	c.Start()
	if !c.bigramSlots[a].loaded {
		t.Fatalf("expected A's bigram slot to survive a Stop where it was used")
	}

	c.Stop() // A was not touched in this second utterance, so it is evicted
	if c.bigramSlots[a].loaded {
		t.Errorf("expected A's bigram slot to be evicted after an utterance that never touched it")
	}
}

func TestBufferCacheTrigramMissingBigram(t *testing.T) {
	loader, err := Open(buildTestModel(t), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer loader.Close()

	c := newBufferCache(loader)
	a := loader.Vocab().IdOf("A")
	cc := loader.Vocab().IdOf("C")

	_, ok, err := c.Trigram(a, cc) // (A,C) is not a tabulated bigram
	if err != nil {
		t.Fatalf("Trigram(A,C): %v", err)
	}
	if ok {
		t.Errorf("expected ok=false for a history with no bigram record")
	}
}

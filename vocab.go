package slm

import (
	"github.com/kho/word"
)

// WordId is the id space of a single loaded model: the 0-based position of
// a word in the model's own on-disk word list (spec.md §3).
type WordId = word.Id

// WordNil is the invalid/unknown word id.
const WordNil = word.NIL

// Vocab is the model's word list, loaded once at Open time from the binary
// header's length-prefixed string table (spec.md §6) into a
// github.com/kho/word vocabulary, exactly as kho-fslm builds one from ARPA
// text in FromARPA.
type Vocab = word.Vocab

// WordResolver is the narrow capability the engine needs from the outside
// world: turn a string into a word handle, and the reverse. spec.md §9
// deliberately scopes this down instead of importing a whole dictionary
// abstraction; *Vocab already satisfies it, and a host recognizer's own
// dictionary type can too without this package knowing about it.
type WordResolver interface {
	IdOf(s string) WordId
	StringOf(id WordId) string
}

// newVocabFromWordList builds the model's vocabulary from the word strings
// read off disk, in id order. Mirrors word.NewVocab's "ids assigned by
// position in the given slice" contract, which kho-fslm's builder.go relies
// on for its bos/eos sentinels.
func newVocabFromWordList(words []string) *Vocab {
	return word.NewVocab(words)
}

package slm

import "errors"

// The five fatal error kinds from spec.md §7. Library code returns these
// (wrapped with fmt.Errorf("%w: ...", ErrX) for detail) rather than calling
// glog.Fatal itself, matching kho-fslm/model.go and sorted.go's
// errors.New-based reporting; only cmd/ binaries promote them to a fatal
// process exit.
var (
	// ErrMalformedModel covers a bad magic, a truncated section, an
	// unexpected record count, or a missing sentinel bigram.
	ErrMalformedModel = errors.New("slm: malformed model")
	// ErrUnknownWord is returned when a query names a word absent from the
	// model's vocabulary.
	ErrUnknownWord = errors.New("slm: unknown word")
	// ErrBufferLoad covers an I/O failure while demand-loading a bigram or
	// trigram byte range.
	ErrBufferLoad = errors.New("slm: buffer load failed")
	// ErrSmearMismatch is returned by ReadSmearInfo when the sidecar file's
	// magic or vocabulary size does not match the model in hand; callers
	// should fall back to BuildSmearInfo.
	ErrSmearMismatch = errors.New("slm: smear file mismatch")
	// ErrUnsupportedArity is returned when a query names more words than
	// the model's MaxDepth supports.
	ErrUnsupportedArity = errors.New("slm: unsupported n-gram arity")
)

package corpus

import (
	"errors"
	"io/fs"
)

// Failure classes for a corpus export. Every error returned by this module
// wraps exactly one of these.
var (
	// ErrPrecondition: the output directory path exists and is not a directory.
	ErrPrecondition = errors.New("precondition failure")
	// ErrMalformedCorpus: the corpus is missing, unreadable, or not an object of string arrays.
	ErrMalformedCorpus = errors.New("malformed corpus")
	// ErrInvalidIdentifier: a level identifier does not split into two parameter values.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrMalformedRow: a grid row is too short to strip its border.
	ErrMalformedRow = errors.New("malformed row")
	// ErrIO: writing an artifact, metadata file, or directory entry failed.
	ErrIO = errors.New("io failure")
)

// Kind is the coarse failure class used for logging and exit codes.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindPrecondition      Kind = "precondition"
	KindMalformedCorpus   Kind = "malformed_corpus"
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindMalformedRow      Kind = "malformed_row"
	KindIO                Kind = "io"
)

// Classify maps err onto its failure class. It relies on sentinel errors and
// standard library error types only, never on message text.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrMalformedCorpus):
		return KindMalformedCorpus
	case errors.Is(err, ErrInvalidIdentifier):
		return KindInvalidIdentifier
	case errors.Is(err, ErrMalformedRow):
		return KindMalformedRow
	case errors.Is(err, ErrIO):
		return KindIO
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return KindIO
	}
	return KindUnknown
}

// ExitCode returns the process exit status for a failure of this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindPrecondition:
		return 2
	case KindMalformedCorpus:
		return 3
	case KindInvalidIdentifier:
		return 4
	case KindMalformedRow:
		return 5
	case KindIO:
		return 6
	default:
		return 1
	}
}

package types

// ErrorKind classifies per-file failures so the report can list every
// skipped or failed file without the operator re-running with verbose
// logging.
type ErrorKind string

const (
	// ErrMalformedDocument means the file could not be parsed as JSON.
	// The file is skipped with a warning; the run continues.
	ErrMalformedDocument ErrorKind = "malformed_document"
	// ErrLocatorStale means a removal's locator no longer resolved at
	// persist time. This indicates an index-adjustment bug and is fatal
	// for the file's write; the run as a whole fails loudly.
	ErrLocatorStale ErrorKind = "locator_stale"
	// ErrIOFailure means the file could not be read or written. Fatal to
	// the run only when zero files succeeded.
	ErrIOFailure ErrorKind = "io_failure"
)

func (k ErrorKind) IsValid() bool {
	switch k {
	case ErrMalformedDocument, ErrLocatorStale, ErrIOFailure:
		return true
	}
	return false
}

// FileFailure records one per-file error for the report
type FileFailure struct {
	File   string    `json:"file"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

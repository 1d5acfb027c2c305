package carve

import "github.com/elturner/carve/internal/carveerr"

// ExitCode is the process exit status a CLI collaborator should return
// for a given pipeline error (spec §6). Argument parsing itself is out of
// scope; only this mapping is.
type ExitCode int

const (
	ExitSuccess       ExitCode = 0
	ExitArgumentParse ExitCode = 1
	ExitInputLoad     ExitCode = 2
	ExitProcessing    ExitCode = 3
	ExitOutputWrite   ExitCode = 4
)

// ExitCodeFor maps err's carveerr.Kind to an ExitCode. err == nil maps to
// ExitSuccess; an error with no Kind() (never produced by this pipeline's
// own packages) maps conservatively to ExitProcessing.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	kind, ok := carveerr.KindOf(err)
	if !ok {
		return ExitProcessing
	}
	switch kind {
	case carveerr.KindInvalidInput, carveerr.KindTimestampOutOfRange:
		return ExitInputLoad
	case carveerr.KindBadFormat:
		return ExitInputLoad
	case carveerr.KindIoError:
		return ExitOutputWrite
	case carveerr.KindInvalidPoint, carveerr.KindNumericalNonfinite:
		return ExitProcessing
	case carveerr.KindInconsistentTree, carveerr.KindCancelled:
		return ExitProcessing
	default:
		return ExitProcessing
	}
}

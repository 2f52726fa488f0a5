package contract

import "github.com/cockroachdb/errors"

// Error taxonomy. Only ErrFatalConfig halts a batch; the others degrade the
// affected field or unit and processing continues.
var (
	ErrParseFailure = errors.New("parse failure")
	ErrLookupMiss   = errors.New("lookup miss")
	ErrFetchFailure = errors.New("fetch failure")
	ErrFatalConfig  = errors.New("fatal config")
)

// mark wraps err (or creates one from the format when err is nil) and tags it with kind.
func mark(kind error, err error, format string, args ...any) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, kind)
}

// ParseFailure returns an error tagged as ErrParseFailure.
func ParseFailure(format string, args ...any) error {
	return mark(ErrParseFailure, nil, format, args...)
}

// LookupMiss returns an error tagged as ErrLookupMiss.
func LookupMiss(format string, args ...any) error {
	return mark(ErrLookupMiss, nil, format, args...)
}

// FetchFailure wraps a collaborator I/O error and tags it as ErrFetchFailure.
func FetchFailure(err error, format string, args ...any) error {
	return mark(ErrFetchFailure, err, format, args...)
}

// FatalConfig wraps err and tags it as ErrFatalConfig.
func FatalConfig(err error, format string, args ...any) error {
	return mark(ErrFatalConfig, err, format, args...)
}

// FatalConfigf returns a new error tagged as ErrFatalConfig.
func FatalConfigf(format string, args ...any) error {
	return mark(ErrFatalConfig, nil, format, args...)
}

// IsFatal reports whether err must abort the batch.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalConfig)
}

// KindOf returns a short label for the taxonomy class of err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFatalConfig):
		return "fatal config"
	case errors.Is(err, ErrParseFailure):
		return "parse failure"
	case errors.Is(err, ErrLookupMiss):
		return "lookup miss"
	case errors.Is(err, ErrFetchFailure):
		return "fetch failure"
	default:
		return "error"
	}
}

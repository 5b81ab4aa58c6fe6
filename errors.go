package ldwriter

import (
	"errors"

	"github.com/piprate/json-gold/ld"
)

// ConversionError reports that the dataset could not be read or converted
// into the RDF representation the JSON-LD engine consumes.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return "ldwriter: could not convert dataset: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ProcessingError reports a failure raised by the JSON-LD engine. Op is
// "expand" or "compact" when writing and "toRDF" when reading.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return "ldwriter: could not process JSON-LD (" + e.Op + "): " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Code returns the json-gold error code of the cause, if there is one.
func (e *ProcessingError) Code() ld.ErrorCode {
	var ldErr *ld.JsonLdError
	if errors.As(e.Err, &ldErr) {
		return ldErr.Code
	}
	return ""
}

// WriteError reports a failure while encoding or flushing the output.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "ldwriter: could not write JSON-LD: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

package extract

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNoText          = errors.New("no extractable text")
	ErrTooLarge        = errors.New("document too large")
)

// ExtractionError reports a document that could not be turned into text.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

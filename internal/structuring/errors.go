package structuring

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates the model returned something that could not
// be decoded into a Record even after sanitizing.
var ErrMalformedResponse = errors.New("malformed structuring response")

// ErrEmptyTranscript indicates there was nothing to structure.
var ErrEmptyTranscript = errors.New("empty transcript")

func malformed(cause error) error {
	return fmt.Errorf("%w: %v", ErrMalformedResponse, cause)
}

package whisper

import (
	"errors"
	"fmt"
)

// ErrNoBackend means neither engine could be constructed.
var ErrNoBackend = errors.New("no transcription backend available")

// LoadError wraps a failure to construct one engine variant.
type LoadError struct {
	Backend string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Backend, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// TranscribeError wraps an inference failure from a loaded engine.
type TranscribeError struct {
	Backend string
	Err     error
}

func (e *TranscribeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *TranscribeError) Unwrap() error { return e.Err }

//go:build !whisper_cpp

package whisper

import (
	"errors"

	"github.com/voxkit/whisperd/internal/config"
)

// Without the whisper_cpp tag the native engine cannot be built (it needs
// cgo and the whisper.cpp library). Construction fails so backend selection
// falls through to the reference CLI.
func newCppEngine(cfg config.Config) (Engine, error) {
	return nil, errors.New("built without whisper_cpp support")
}

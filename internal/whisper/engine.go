package whisper

import "context"

// Backend tags, in preference order.
const (
	BackendWhisperCPP = "whisper-cpp"
	BackendWhisperCLI = "openai-whisper"
)

// Result is the raw outcome of one backend inference call.
type Result struct {
	Text     string
	Language string
	Duration float64 // audio length in seconds; 0 when the backend cannot report it
}

// Engine is a transcription backend behind a common contract. Implementations
// are safe for concurrent use and live for the rest of the process once built.
type Engine interface {
	// Transcribe runs inference over the audio file. An empty language means
	// auto-detect; a non-empty hint is forwarded to the backend unvalidated.
	Transcribe(ctx context.Context, audioPath, language string) (Result, error)
	// Backend returns the tag identifying which engine produced this handle.
	Backend() string
	Close() error
}

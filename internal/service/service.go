// Package service orchestrates a transcription request: it ensures the model
// is loaded, drives the backend, and normalizes the result.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxkit/whisperd/internal/whisper"
)

// Transcription is the canonical per-request result.
type Transcription struct {
	Transcript     string
	Language       string
	Duration       float64 // audio length in seconds; 0 if the backend cannot report it
	ProcessingTime float64 // wall-clock inference time in seconds
}

// Loader yields the process-wide engine.
type Loader interface {
	Get() (whisper.Engine, error)
}

type Service struct {
	loader Loader
}

func New(loader Loader) *Service {
	return &Service{loader: loader}
}

// Transcribe runs one inference over the audio file. Errors from the loader or
// the engine propagate unmodified; nothing is retried and no timeout is
// imposed here.
func (s *Service) Transcribe(ctx context.Context, audioPath, language string) (Transcription, error) {
	eng, err := s.loader.Get()
	if err != nil {
		return Transcription{}, err
	}

	log.Info().Str("backend", eng.Backend()).Str("path", audioPath).Msg("transcribing")
	start := time.Now()
	res, err := eng.Transcribe(ctx, audioPath, language)
	if err != nil {
		return Transcription{}, err
	}
	elapsed := time.Since(start).Seconds()

	// Backend-detected language wins over the caller's hint.
	lang := language
	if res.Language != "" {
		lang = res.Language
	}

	log.Info().
		Float64("processingTime", elapsed).
		Int("chars", len(res.Text)).
		Str("language", lang).
		Msg("transcription complete")
	return Transcription{
		Transcript:     res.Text,
		Language:       lang,
		Duration:       res.Duration,
		ProcessingTime: elapsed,
	}, nil
}

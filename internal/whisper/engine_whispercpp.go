//go:build whisper_cpp

package whisper

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/voxkit/whisperd/internal/audio"
	"github.com/voxkit/whisperd/internal/config"
)

const (
	whisperSampleRate = 16000
	beamSize          = 5
	vadMode           = 2
)

// cppEngine is the whisper.cpp-backed engine, the preferred backend.
type cppEngine struct {
	model   whisperpkg.Model
	threads uint
	mu      sync.Mutex // whisper.cpp contexts crash under concurrent Process calls
}

func newCppEngine(cfg config.Config) (Engine, error) {
	threads := uint(runtime.NumCPU())
	if cfg.Threads > 0 {
		threads = uint(cfg.Threads)
	}

	m, err := whisperpkg.New(cfg.ModelPath())
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ModelPath(), err)
	}

	log.Info().
		Str("model", cfg.ModelPath()).
		Str("computeType", cfg.ComputeType()).
		Uint("threads", threads).
		Msg("whisper: native model loaded")
	return &cppEngine{model: m, threads: threads}, nil
}

func (e *cppEngine) Backend() string { return BackendWhisperCPP }

func (e *cppEngine) Close() error {
	if e.model != nil {
		e.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file, drops silent spans, and runs a beam-search
// decode over the remaining audio. Duration reflects the full file, not the
// voiced portion.
func (e *cppEngine) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	samples, rate, err := audio.DecodeWAVFile(audioPath)
	if err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCPP, Err: fmt.Errorf("decode audio: %w", err)}
	}
	if rate != whisperSampleRate {
		samples = audio.ResampleLinear(samples, rate, whisperSampleRate)
	}
	durationSec := float64(len(samples)) / whisperSampleRate

	filtered, err := audio.FilterSilence(samples, whisperSampleRate, vadMode)
	if err != nil {
		log.Warn().Err(err).Msg("whisper: vad filter failed, decoding unfiltered audio")
		filtered = samples
	}
	if len(filtered) == 0 {
		// Nothing but silence.
		return Result{Language: language, Duration: durationSec}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wctx, err := e.model.NewContext()
	if err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCPP, Err: fmt.Errorf("create context: %w", err)}
	}
	wctx.SetThreads(e.threads)
	wctx.SetBeamSize(beamSize)
	lang := language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCPP, Err: fmt.Errorf("set language %q: %w", lang, err)}
	}

	if err := wctx.Process(filtered, nil, nil, nil); err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCPP, Err: fmt.Errorf("process audio: %w", err)}
	}

	var parts []string
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Warn().Err(err).Msg("whisper: error reading segment")
			break
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}

	detected := wctx.Language()
	if detected == "" || detected == "auto" {
		detected = wctx.DetectedLanguage()
	}
	if detected == "" || detected == "auto" {
		detected = language
	}

	log.Debug().
		Int("segments", len(parts)).
		Str("language", detected).
		Float64("duration", durationSec).
		Msg("whisper: native transcription complete")
	return Result{Text: strings.Join(parts, " "), Language: detected, Duration: durationSec}, nil
}

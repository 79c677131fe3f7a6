package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/voxkit/whisperd/internal/config"
)

// cliEngine shells out to the reference openai-whisper CLI. It is the fallback
// when the native engine is unavailable. The CLI handles its own audio
// decoding, so any container format ffmpeg understands is accepted.
type cliEngine struct {
	bin   string
	model string
}

func newCLIEngine(cfg config.Config) (Engine, error) {
	path, err := exec.LookPath(cfg.WhisperBin)
	if err != nil {
		return nil, fmt.Errorf("reference whisper CLI not found: %w", err)
	}
	return &cliEngine{bin: path, model: cfg.Model}, nil
}

func (e *cliEngine) Backend() string { return BackendWhisperCLI }

func (e *cliEngine) Close() error { return nil }

// Transcribe runs one whole-file decode. fp16 is forced off: the reference
// engine's half-precision mode is unreliable on CPU. Audio duration is not
// reported by this backend.
func (e *cliEngine) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	outDir, err := os.MkdirTemp("", "whisperd-cli-")
	if err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCLI, Err: fmt.Errorf("create output dir: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(outDir); err != nil {
			log.Warn().Err(err).Str("dir", outDir).Msg("whisper: cli output cleanup failed")
		}
	}()

	args := []string{
		audioPath,
		"--model", e.model,
		"--fp16", "False",
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}

	cmd := exec.CommandContext(ctx, e.bin, args...)
	if _, err := cmd.Output(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return Result{}, &TranscribeError{
				Backend: BackendWhisperCLI,
				Err:     fmt.Errorf("whisper cli: %s", strings.TrimSpace(string(ee.Stderr))),
			}
		}
		return Result{}, &TranscribeError{Backend: BackendWhisperCLI, Err: fmt.Errorf("run whisper cli: %w", err)}
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCLI, Err: fmt.Errorf("read cli output: %w", err)}
	}

	var parsed struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, &TranscribeError{Backend: BackendWhisperCLI, Err: fmt.Errorf("parse cli output: %w", err)}
	}

	lang := parsed.Language
	if lang == "" {
		lang = language
	}
	return Result{Text: strings.TrimSpace(parsed.Text), Language: lang}, nil
}

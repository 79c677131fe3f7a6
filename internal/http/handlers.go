package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxkit/whisperd/internal/config"
	"github.com/voxkit/whisperd/internal/service"
	"github.com/voxkit/whisperd/internal/whisper"
)

const (
	serviceName        = "whisper-transcription"
	serviceDisplayName = "Whisper Transcription Service"
	serviceVersion     = "1.0.0"
)

// Transcriber is the service contract the handler drives.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (service.Transcription, error)
}

// ModelInfo exposes the loaded backend's identity without forcing a load.
type ModelInfo interface {
	BackendTag() string
}

type Handler struct {
	cfg   config.Config
	svc   Transcriber
	model ModelInfo
}

// contentTypeExt maps upload content types to file extensions, used when the
// uploaded filename carries no extension of its own.
var contentTypeExt = map[string]string{
	"audio/wav":   ".wav",
	"audio/mpeg":  ".mp3",
	"audio/mp4":   ".m4a",
	"audio/mp3":   ".mp3",
	"audio/ogg":   ".ogg",
	"audio/flac":  ".flac",
	"audio/webm":  ".webm",
	"audio/x-wav": ".wav",
	"audio/x-m4a": ".m4a",
}

type transcribeResponse struct {
	Transcript     string  `json:"transcript"`
	Language       string  `json:"language"`
	Duration       float64 `json:"duration"`
	ProcessingTime float64 `json:"processing_time"`
	Model          string  `json:"model"`
}

// Health reports process status. It never touches the model, so probing this
// route cannot trigger a load.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   serviceName,
		"model":     h.cfg.Model,
		"device":    h.cfg.Device,
		"backend":   h.model.BackendTag(),
		"timestamp": float64(time.Now().UnixMilli()) / 1000.0,
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceDisplayName,
		"version": serviceVersion,
		"endpoints": map[string]string{
			"GET /health":      "Health check",
			"POST /transcribe": "Transcribe audio (multipart form with audio file)",
		},
		"model": h.cfg.Model,
	})
}

// Transcribe accepts a multipart upload, spills it to a uniquely named temp
// file, runs the transcription service, and deletes the file on every exit
// path.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file selected"})
		return
	}
	language := r.FormValue("language")

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = extFromContentType(header.Header.Get("Content-Type"))
	}

	if err := os.MkdirAll(h.cfg.TempDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":      err.Error(),
			"error_type": "internal_error",
		})
		return
	}

	// UUID naming keeps concurrent uploads from ever sharing a path.
	tempPath := filepath.Join(h.cfg.TempDir, "audio_"+uuid.NewString()+ext)
	size, err := saveUpload(tempPath, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":      err.Error(),
			"error_type": "internal_error",
		})
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", tempPath).Msg("temp file cleanup failed")
		}
	}()

	log.Info().
		Str("file", header.Filename).
		Str("contentType", header.Header.Get("Content-Type")).
		Str("language", language).
		Int64("bytes", size).
		Str("temp", tempPath).
		Msg("audio upload received")

	result, err := h.svc.Transcribe(r.Context(), tempPath, language)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":      err.Error(),
			"error_type": errorType(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Transcript:     result.Transcript,
		Language:       result.Language,
		Duration:       result.Duration,
		ProcessingTime: result.ProcessingTime,
		Model:          h.cfg.Model,
	})
}

func saveUpload(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			log.Warn().Err(rerr).Str("path", path).Msg("temp file cleanup failed")
		}
		return 0, err
	}
	return size, nil
}

func extFromContentType(contentType string) string {
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	if ext, ok := contentTypeExt[ct]; ok {
		return ext
	}
	return ".wav"
}

// errorType folds an error into the response's error_type field. ErrNoBackend
// is matched first: the both-backends-failed error wraps the per-backend
// LoadErrors, and the aggregate category is the one to report.
func errorType(err error) string {
	var le *whisper.LoadError
	var te *whisper.TranscribeError
	switch {
	case errors.Is(err, whisper.ErrNoBackend):
		return "backend_unavailable"
	case errors.As(err, &le):
		return "load_error"
	case errors.As(err, &te):
		return "transcribe_error"
	default:
		return "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}

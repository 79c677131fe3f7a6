package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the service configuration, sourced from environment variables.
type Config struct {
	Addr       string
	Model      string // model size: tiny, base, small, medium, large
	Device     string // "cpu" or an accelerator id such as "cuda"
	ModelDir   string // directory holding ggml model files for the native engine
	WhisperBin string // reference whisper CLI binary for the fallback engine
	TempDir    string // scratch directory for uploaded audio
	Threads    int    // 0 means use all CPU cores
	Preload    bool   // load the model at startup instead of on first request
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "0", "false", "no", "off", "False", "FALSE":
			return false
		default:
			return true
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func Load() Config {
	return Config{
		Addr:       ":" + getenv("PORT", "5000"),
		Model:      getenv("WHISPER_MODEL", "base"),
		Device:     getenv("WHISPER_DEVICE", "cpu"),
		ModelDir:   getenv("WHISPER_MODEL_DIR", "./models"),
		WhisperBin: getenv("WHISPER_BIN", "whisper"),
		TempDir:    getenv("WHISPER_TMP_DIR", filepath.Join(os.TempDir(), "whisperd")),
		Threads:    getenvInt("WHISPER_THREADS", 0),
		Preload:    getenvBool("PRELOAD_MODEL", false),
	}
}

// ModelPath returns the ggml model file the native engine loads.
func (c Config) ModelPath() string {
	return filepath.Join(c.ModelDir, "ggml-"+c.Model+".bin")
}

// ComputeType reports the inference precision for the configured device:
// int8 on CPU, float16 on an accelerator.
func (c Config) ComputeType() string {
	if c.Device == "cpu" {
		return "int8"
	}
	return "float16"
}

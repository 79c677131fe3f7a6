package whisper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/voxkit/whisperd/internal/config"
)

// Factory constructs one engine variant.
type Factory struct {
	Backend string
	New     func(cfg config.Config) (Engine, error)
}

func defaultFactories() []Factory {
	return []Factory{
		{Backend: BackendWhisperCPP, New: newCppEngine},
		{Backend: BackendWhisperCLI, New: newCLIEngine},
	}
}

// Loader owns the single per-process engine. The first Get builds it by trying
// each factory in preference order; afterwards every call returns the cached
// handle. A failed load is not cached: the next Get retries the full attempt,
// so an operator can drop in a missing model file or CLI without restarting.
type Loader struct {
	cfg       config.Config
	factories []Factory

	mu     sync.Mutex
	engine Engine
}

func NewLoader(cfg config.Config) *Loader {
	return &Loader{cfg: cfg, factories: defaultFactories()}
}

// NewLoaderWithFactories overrides the engine factories. Used in tests.
func NewLoaderWithFactories(cfg config.Config, factories []Factory) *Loader {
	return &Loader{cfg: cfg, factories: factories}
}

// Get returns the loaded engine, loading it on first use. Concurrent first
// callers serialize on the mutex so the model is constructed at most once.
func (l *Loader) Get() (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine != nil {
		return l.engine, nil
	}

	log.Info().Str("model", l.cfg.Model).Str("device", l.cfg.Device).Msg("whisper: loading model")

	var causes []error
	for _, f := range l.factories {
		eng, err := f.New(l.cfg)
		if err != nil {
			log.Warn().Err(err).Str("backend", f.Backend).Msg("whisper: backend unavailable")
			causes = append(causes, &LoadError{Backend: f.Backend, Err: err})
			continue
		}
		log.Info().Str("backend", f.Backend).Str("model", l.cfg.Model).Msg("whisper: model loaded")
		l.engine = eng
		return eng, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(causes...))
}

// Preload eagerly loads the model at startup.
func (l *Loader) Preload() error {
	_, err := l.Get()
	return err
}

// Loaded reports whether the engine has been constructed. Never triggers a load.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine != nil
}

// BackendTag returns the loaded backend's tag, or "" before the first load.
// Never triggers a load.
func (l *Loader) BackendTag() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine == nil {
		return ""
	}
	return l.engine.Backend()
}

func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.engine == nil {
		return nil
	}
	err := l.engine.Close()
	l.engine = nil
	return err
}

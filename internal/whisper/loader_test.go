package whisper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxkit/whisperd/internal/config"
)

type fakeEngine struct {
	backend string
	result  Result
	err     error
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	return f.result, f.err
}
func (f *fakeEngine) Backend() string { return f.backend }
func (f *fakeEngine) Close() error    { return nil }

func okFactory(backend string, loads *atomic.Int32) Factory {
	return Factory{Backend: backend, New: func(cfg config.Config) (Engine, error) {
		if loads != nil {
			loads.Add(1)
		}
		return &fakeEngine{backend: backend}, nil
	}}
}

func failFactory(backend string, err error) Factory {
	return Factory{Backend: backend, New: func(cfg config.Config) (Engine, error) {
		return nil, err
	}}
}

func TestLoaderPrefersFirstFactory(t *testing.T) {
	l := NewLoaderWithFactories(config.Config{}, []Factory{
		okFactory(BackendWhisperCPP, nil),
		okFactory(BackendWhisperCLI, nil),
	})

	eng, err := l.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if eng.Backend() != BackendWhisperCPP {
		t.Errorf("expected %s, got %s", BackendWhisperCPP, eng.Backend())
	}
}

func TestLoaderFallsBackOnFailure(t *testing.T) {
	l := NewLoaderWithFactories(config.Config{}, []Factory{
		failFactory(BackendWhisperCPP, errors.New("library absent")),
		okFactory(BackendWhisperCLI, nil),
	})

	eng, err := l.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if eng.Backend() != BackendWhisperCLI {
		t.Errorf("expected fallback to %s, got %s", BackendWhisperCLI, eng.Backend())
	}
}

func TestLoaderNoBackendAvailable(t *testing.T) {
	l := NewLoaderWithFactories(config.Config{}, []Factory{
		failFactory(BackendWhisperCPP, errors.New("no model file")),
		failFactory(BackendWhisperCLI, errors.New("binary missing")),
	})

	_, err := l.Get()
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Errorf("expected wrapped LoadError, got %v", err)
	}
	// Both per-backend causes must be carried in the message.
	for _, want := range []string{"no model file", "binary missing"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %v does not mention cause %q", err, want)
		}
	}
}

func TestLoaderLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	slow := Factory{Backend: BackendWhisperCPP, New: func(cfg config.Config) (Engine, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &fakeEngine{backend: BackendWhisperCPP}, nil
	}}
	l := NewLoaderWithFactories(config.Config{}, []Factory{slow})

	const workers = 16
	engines := make([]Engine, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eng, err := l.Get()
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			engines[i] = eng
		}(i)
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Errorf("expected exactly 1 load, got %d", n)
	}
	for i := 1; i < workers; i++ {
		if engines[i] != engines[0] {
			t.Fatalf("worker %d got a different engine handle", i)
		}
	}
}

func TestLoaderRetriesAfterFailedLoad(t *testing.T) {
	var attempts atomic.Int32
	flaky := Factory{Backend: BackendWhisperCPP, New: func(cfg config.Config) (Engine, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("model file missing")
		}
		return &fakeEngine{backend: BackendWhisperCPP}, nil
	}}
	l := NewLoaderWithFactories(config.Config{}, []Factory{flaky})

	if _, err := l.Get(); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend on first attempt, got %v", err)
	}
	if l.Loaded() {
		t.Fatal("failed load must not be cached as loaded")
	}
	if _, err := l.Get(); err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestLoaderIdentityWithoutLoad(t *testing.T) {
	var loads atomic.Int32
	l := NewLoaderWithFactories(config.Config{}, []Factory{okFactory(BackendWhisperCPP, &loads)})

	if l.Loaded() {
		t.Error("Loaded must be false before first Get")
	}
	if tag := l.BackendTag(); tag != "" {
		t.Errorf("BackendTag before load should be empty, got %q", tag)
	}
	if loads.Load() != 0 {
		t.Fatal("identity queries must not trigger a load")
	}

	if _, err := l.Get(); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !l.Loaded() {
		t.Error("Loaded must be true after Get")
	}
	if tag := l.BackendTag(); tag != BackendWhisperCPP {
		t.Errorf("BackendTag after load = %q", tag)
	}
}

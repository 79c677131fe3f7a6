package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, data []int, rate, channels int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func sineInt16(n int, freq float64, rate int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestDecodeWAVFileMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, sineInt16(16000, 440, 16000), 16000, 1)

	samples, rate, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatalf("DecodeWAVFile: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d", rate)
	}
	if len(samples) != 16000 {
		t.Errorf("len = %d", len(samples))
	}
	for i, s := range samples {
		if s < -1.0 || s > 1.0 {
			t.Fatalf("sample %d out of range: %v", i, s)
		}
	}
}

func TestDecodeWAVFileStereoDownmix(t *testing.T) {
	const n = 1000
	data := make([]int, 2*n)
	for i := 0; i < n; i++ {
		data[2*i] = 1000
		data[2*i+1] = 3000
	}
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, data, 16000, 2)

	samples, _, err := DecodeWAVFile(path)
	if err != nil {
		t.Fatalf("DecodeWAVFile: %v", err)
	}
	if len(samples) != n {
		t.Fatalf("len = %d, want %d", len(samples), n)
	}
	want := float32(2000) / 32768
	for i, s := range samples {
		if math.Abs(float64(s-want)) > 1e-4 {
			t.Fatalf("sample %d = %v, want %v", i, s, want)
		}
	}
}

func TestDecodeWAVFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := DecodeWAVFile(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}

	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := DecodeWAVFile(junk); err == nil {
		t.Error("expected error for non-wav content")
	}
}

func TestResampleLinear(t *testing.T) {
	in := sineInt16(8000, 440, 8000)
	samples := make([]float32, len(in))
	for i, v := range in {
		samples[i] = float32(v) / 32768
	}

	out := ResampleLinear(samples, 8000, 16000)
	if got, want := len(out), 16000; got != want {
		t.Errorf("upsampled len = %d, want %d", got, want)
	}

	out = ResampleLinear(samples, 8000, 8000)
	if len(out) != len(samples) {
		t.Errorf("same-rate len = %d, want %d", len(out), len(samples))
	}

	out = ResampleLinear(samples, 16000, 8000)
	if got, want := len(out), 4000; got != want {
		t.Errorf("downsampled len = %d, want %d", got, want)
	}
}

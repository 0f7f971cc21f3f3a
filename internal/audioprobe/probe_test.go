package audioprobe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWavFixture(t *testing.T, sampleRate, channels, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, samples*channels),
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestProbeWav(t *testing.T) {
	path := writeWavFixture(t, 16000, 1, 16000)

	info := Probe(path)
	if info.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Fatalf("expected 1 channel, got %d", info.Channels)
	}
	if info.Duration <= 0 {
		t.Fatalf("expected positive duration, got %v", info.Duration)
	}
}

func TestProbeNonWavIsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.mp3")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if info := Probe(path); info != (Info{}) {
		t.Fatalf("expected zero info, got %+v", info)
	}
}

func TestProbeMalformedWavIsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("RIFFgarbage"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if info := Probe(path); info != (Info{}) {
		t.Fatalf("expected zero info, got %+v", info)
	}
}

// Package audioprobe extracts best-effort metadata from uploaded audio.
package audioprobe

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// Info carries decoded audio metadata. The zero value means the file could
// not be probed; callers treat that as "no metadata", never as a failure.
type Info struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Probe reads WAV header metadata. Non-WAV uploads and malformed files
// yield a zero Info so the pipeline is never blocked on metadata.
func Probe(path string) Info {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return Info{}
	}
	f, err := os.Open(path)
	if err != nil {
		return Info{}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Info{}
	}
	duration, err := dec.Duration()
	if err != nil {
		duration = 0
	}
	return Info{
		Duration:   duration,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}
}

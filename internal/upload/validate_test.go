package upload

import (
	"testing"

	"github.com/diegojrodriguess/c317-backend/internal/config"
)

func testConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSize:      1024,
		AllowedFormats:   []string{".mp3", ".wav"},
		AllowedMimeTypes: []string{"audio/mpeg", "audio/wav"},
	}
}

func TestValidateAccepts(t *testing.T) {
	cases := []Meta{
		{Filename: "sample.mp3", Size: 512, MimeType: "audio/mpeg"},
		{Filename: "SAMPLE.WAV", Size: 1024, MimeType: "audio/wav"},
		{Filename: "voice.mp3", Size: 10, MimeType: "audio/x-custom"}, // audio/* passthrough
		{Filename: "voice.mp3", Size: 10, MimeType: ""},
	}
	for _, meta := range cases {
		if err := Validate(testConfig(), meta); err != nil {
			t.Fatalf("expected %+v to pass, got %v", meta, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []Meta{
		{Filename: "notes.txt", Size: 10, MimeType: "text/plain"},
		{Filename: "sample.mp3", Size: 2048, MimeType: "audio/mpeg"},
		{Filename: "sample.mp3", Size: 10, MimeType: "video/mp4"},
	}
	for _, meta := range cases {
		if err := Validate(testConfig(), meta); err == nil {
			t.Fatalf("expected %+v to be rejected", meta)
		}
	}
}

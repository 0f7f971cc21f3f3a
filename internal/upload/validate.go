// Package upload holds the validation rules the transport layer applies
// before a file ever reaches the evaluation pipeline.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/diegojrodriguess/c317-backend/internal/config"
)

// Meta describes an uploaded file as declared by the client.
type Meta struct {
	Filename string
	Size     int64
	MimeType string
}

// Validate enforces size, extension, and MIME constraints. Any audio/*
// content type is accepted alongside the explicit allow-list.
func Validate(cfg config.UploadConfig, meta Meta) error {
	if meta.Size > cfg.MaxFileSize {
		return fmt.Errorf("arquivo excede o tamanho máximo de %d bytes", cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(meta.Filename))
	if !contains(cfg.AllowedFormats, ext) {
		return fmt.Errorf("tipo de arquivo não suportado. Use: %s", strings.Join(cfg.AllowedFormats, ", "))
	}

	if meta.MimeType != "" &&
		!contains(cfg.AllowedMimeTypes, meta.MimeType) &&
		!strings.HasPrefix(meta.MimeType, "audio/") {
		return fmt.Errorf("apenas arquivos de áudio são permitidos")
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errNoIllustration = errors.New("no illustration for this scene")

// saveIllustration decodes a data URL and writes it under dir. The file is
// named after the scene sequence so each scene keeps its own picture.
func saveIllustration(dataURL, dir string, seq uint64) (string, error) {
	if dataURL == "" {
		return "", errNoIllustration
	}
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("unsupported illustration format")
	}
	ext := strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64")
	if ext == "jpeg" {
		ext = "jpg"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode illustration: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("scene-%03d.%s", seq, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write illustration: %w", err)
	}
	return path, nil
}

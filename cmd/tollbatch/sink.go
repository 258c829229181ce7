package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// dirSink writes downloads into a directory, creating it when needed.
type dirSink struct {
	dir     string
	written []string
}

func (d *dirSink) Download(content, filename string) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(d.dir, filepath.Base(filename))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	d.written = append(d.written, path)
	return nil
}

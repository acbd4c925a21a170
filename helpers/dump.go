package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dumper writes raw payloads to files for offline inspection
type Dumper interface {
	Dump(name string, content string) (string, error)
}

// FileDumper writes dumps into a directory
type FileDumper struct {
	dir string
}

// NewFileDumper creates a dumper rooted at dir
func NewFileDumper(dir string) *FileDumper {
	return &FileDumper{dir: dir}
}

// Dump writes content to dir/name and returns the written path
func (d *FileDumper) Dump(name string, content string) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dump dir: %w", err)
	}

	path := filepath.Join(d.dir, name)
	f, err := os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open dump file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("failed to write dump file: %w", err)
	}
	return path, nil
}

// TimestampedName prefixes name with the current time so successive dumps do not overwrite each other
func TimestampedName(name string) string {
	return time.Now().Format("20060102_150405") + "_" + name
}

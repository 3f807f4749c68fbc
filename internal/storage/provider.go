// Package storage defines the vault file-system abstraction.
package storage

import "time"

// FileInfo describes one file in a vault directory.
type FileInfo struct {
	Path    string // vault-relative, forward slashes
	Name    string // base name, with extension
	Size    int64
	ModTime time.Time
}

// Provider is the interface for vault file operations.
// All paths are relative to the vault root and may not escape it.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// ListDir returns the regular files directly inside dir. It never recurses.
	ListDir(dir string) ([]FileInfo, error)
	// Stat returns metadata for a single file.
	Stat(path string) (FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Append adds content to the end of path, creating it if needed.
	Append(path string, content []byte) error
}

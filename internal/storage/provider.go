// Package storage defines the decision repository file-system abstraction.
package storage

// FileMeta describes a Markdown file found under the root.
type FileMeta struct {
	// Path is relative to the root, slash separated.
	Path string
}

// Provider is the interface for repository file operations.
// All paths are relative to the provider root.
type Provider interface {
	// List returns every .md file under dir, skipping dot-directories.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a file exists at path.
	Exists(path string) bool
	// Root returns the absolute root directory.
	Root() string
}

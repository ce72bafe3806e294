// Package storage reads and writes deck files in the library directory.
package storage

import "time"

// DeckFile describes one deck file in the library.
type DeckFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for library file operations. Paths are relative to the library root.
type Provider interface {
	// List returns every deck file (.md, .xlsx) under dir.
	List(dir string) ([]DeckFile, error)
	Read(path string) ([]byte, error)
	// Write atomically replaces path with content.
	Write(path string, content []byte) error
	Delete(path string) error
	// Root returns the absolute library directory.
	Root() string
}

var _ Provider = (*FS)(nil)

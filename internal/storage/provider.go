// Package storage defines the backing store for the mock document.
package storage

// Provider reads and writes the raw bytes of the persisted document.
type Provider interface {
	// Read returns the current file contents. A missing file yields an error
	// matching os.ErrNotExist.
	Read() ([]byte, error)
	// Write atomically replaces the file contents.
	Write(content []byte) error
	// Path returns the absolute path of the backing file.
	Path() string
}

package transport

import (
	"context"
	"errors"
	"io"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Session is what the HTTP shell drives. Paths are absolute or relative to
// the session's current directory.
type Session interface {
	Devices(ctx context.Context) ([]string, string, error)
	SelectDevice(ctx context.Context, serial string) error
	SetScope(pkg string)

	Path() string
	Navigate(op, name string) error
	// List changes to dir, when given, and lists the current directory in
	// one step. It returns the directory that was listed.
	List(ctx context.Context, dir string) (string, []DirEntry, error)

	Fetch(ctx context.Context, path string, dst io.Writer) error
	Push(ctx context.Context, path string, src io.Reader) error
	Delete(ctx context.Context, path string) error
}

type DirEntry struct {
	Name        string
	Kind        string
	Size        string
	Bytes       uint64 `json:",omitempty"`
	Owner       string
	Group       string
	ModTime     string
	Permissions string
	Target      string `json:",omitempty"`
}

type ListDirectoryResponse struct {
	Path    string
	Entries []DirEntry
	Error   string `json:",omitempty"`
}

type DevicesResponse struct {
	Devices  []string
	Selected string
}

package adbfs

import (
	"strings"

	"github.com/dustin/go-humanize"
)

type Kind uint8

const (
	KindFile Kind = 0
	KindDir  Kind = 1
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// RemoteEntry is one line of a device directory listing.
type RemoteEntry struct {
	Name        string
	Kind        Kind
	Size        string
	Owner       string
	Group       string
	ModifiedAt  string
	Permissions string
	LinkTarget  string
}

func (e RemoteEntry) IsDir() bool {
	return e.Kind == KindDir
}

func (e RemoteEntry) IsSymlink() bool {
	return e.LinkTarget != ""
}

// Display renders the name the way ls does, `name -> target` for symlinks.
func (e RemoteEntry) Display() string {
	if e.IsSymlink() {
		return e.Name + " -> " + e.LinkTarget
	}
	return e.Name
}

// Bytes converts the human readable size printed by `ls -h` (4.0K, 12M) into
// a byte count. ls uses powers of 1024.
func (e RemoteEntry) Bytes() (uint64, error) {
	size := e.Size
	if n := len(size); n > 0 && strings.ContainsRune("KMGTPE", rune(size[n-1])) {
		size += "iB"
	}
	return humanize.ParseBytes(size)
}

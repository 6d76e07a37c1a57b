package adbfs

import (
	"context"

	"github.com/b1naryth1ef/adbfs/bridge"
)

type UploadStrategy string

const (
	// UploadStage pushes to StagingDir and copies into place with run-as.
	UploadStage UploadStrategy = "stage"
	// UploadStream pipes the file into `run-as <pkg> sh -c 'cat > path'`.
	UploadStream UploadStrategy = "stream"
)

const DefaultStagingDir = "/data/local/tmp"

type Options struct {
	StagingDir     string
	UploadStrategy UploadStrategy
}

// FileSystem issues filesystem operations for a Session through the bridge.
// It keeps no state of its own; every call is routed against the session it
// is given.
type FileSystem struct {
	bridge *bridge.Bridge
	opts   Options
}

func NewFileSystem(b *bridge.Bridge, opts Options) *FileSystem {
	if opts.StagingDir == "" {
		opts.StagingDir = DefaultStagingDir
	}
	if opts.UploadStrategy == "" {
		opts.UploadStrategy = UploadStage
	}
	return &FileSystem{bridge: b, opts: opts}
}

// shell runs `shell [run-as <scope>] <command...>` routed for target.
func (f *FileSystem) shell(ctx context.Context, s *Session, target string, command ...string) (*bridge.Result, error) {
	args := append([]string{"shell"}, s.Route(target, command...)...)
	return f.bridge.Execute(ctx, s.Device, args...)
}

// List returns the entries of the session's current directory. When ls exits
// non-zero the entries it still printed are returned together with the error.
func (f *FileSystem) List(ctx context.Context, s *Session) ([]RemoteEntry, error) {
	dir := s.Path()
	res, err := f.shell(ctx, s, dir, "ls", "-lah", bridge.Quote(dir))
	if err != nil {
		return nil, err
	}
	return ParseListing(res.Stdout), res.Err()
}

// Delete removes remotePath recursively. There is no confirmation and no undo.
func (f *FileSystem) Delete(ctx context.Context, s *Session, remotePath string) error {
	if remotePath == "" {
		return ErrNoSelection
	}
	res, err := f.shell(ctx, s, remotePath, "rm", "-rf", bridge.Quote(remotePath))
	if err != nil {
		return err
	}
	return res.Err()
}

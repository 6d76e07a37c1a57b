package adbfs

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"

	"github.com/b1naryth1ef/adbfs/bridge"
)

// Download copies remotePath to localPath. Escalated paths cannot be pulled,
// so their contents are streamed through `exec-out run-as <pkg> cat`. If that
// fails part way, whatever was written to localPath stays there.
func (f *FileSystem) Download(ctx context.Context, s *Session, remotePath, localPath string) error {
	if remotePath == "" {
		return ErrNoSelection
	}

	if s.Escalates(remotePath) {
		out, err := os.Create(localPath)
		if err != nil {
			return err
		}
		defer out.Close()
		return f.DownloadTo(ctx, s, remotePath, out)
	}

	res, err := f.bridge.Execute(ctx, s.Device, "pull", remotePath, localPath)
	if err != nil {
		return err
	}
	return res.Err()
}

// DownloadTo streams the contents of remotePath into dst.
func (f *FileSystem) DownloadTo(ctx context.Context, s *Session, remotePath string, dst io.Writer) error {
	if remotePath == "" {
		return ErrNoSelection
	}
	args := append([]string{"exec-out"}, s.Route(remotePath, "cat", bridge.Quote(remotePath))...)
	res, err := f.bridge.ExecuteTo(ctx, s.Device, dst, args...)
	if err != nil {
		return err
	}
	return res.Err()
}

// Upload copies localPath to remotePath. For escalated destinations the
// configured UploadStrategy decides how the file gets past run-as.
func (f *FileSystem) Upload(ctx context.Context, s *Session, localPath, remotePath string) error {
	if remotePath == "" {
		return ErrNoSelection
	}

	if !s.Escalates(remotePath) {
		return f.push(ctx, s, localPath, remotePath)
	}

	if f.opts.UploadStrategy == UploadStream {
		in, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer in.Close()
		return f.UploadFrom(ctx, s, in, remotePath)
	}
	return f.stagedUpload(ctx, s, localPath, remotePath)
}

func (f *FileSystem) push(ctx context.Context, s *Session, localPath, remotePath string) error {
	res, err := f.bridge.Execute(ctx, s.Device, "push", localPath, remotePath)
	if err != nil {
		return err
	}
	return res.Err()
}

// stagedUpload pushes to the staging directory, then copies into place as the
// application. A failed copy leaves the staged file behind.
func (f *FileSystem) stagedUpload(ctx context.Context, s *Session, localPath, remotePath string) error {
	staged := path.Join(f.opts.StagingDir, path.Base(remotePath))
	if err := f.push(ctx, s, localPath, staged); err != nil {
		return fmt.Errorf("stage %s: %w", staged, err)
	}

	res, err := f.shell(ctx, s, remotePath, "cp", bridge.Quote(staged), bridge.Quote(remotePath))
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		log.Printf("[FileSystem] copy into %s failed, staged copy left at %s", remotePath, staged)
		return err
	}
	return nil
}

// UploadFrom writes src to remotePath through a shell redirect, run as the
// scope's application when remotePath needs it.
func (f *FileSystem) UploadFrom(ctx context.Context, s *Session, src io.Reader, remotePath string) error {
	if remotePath == "" {
		return ErrNoSelection
	}
	redirect := bridge.Quote("cat > " + bridge.Quote(remotePath))
	args := append([]string{"shell"}, s.Route(remotePath, "sh", "-c", redirect)...)
	res, err := f.bridge.ExecuteFrom(ctx, s.Device, src, args...)
	if err != nil {
		return err
	}
	return res.Err()
}

package adbfs

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// RemoteFileSession is everything a front end needs to browse a device.
// Names given to Download, Delete and UploadFrom are resolved against the
// current directory unless absolute.
type RemoteFileSession interface {
	Devices(ctx context.Context) ([]Device, error)
	SelectDevice(ctx context.Context, serial string) error
	Device() string

	Scope() string
	SetScope(pkg string)

	Path() string
	Chdir(p string)
	EnterRoot()
	EnterUp()
	EnterChild(name string)
	Open(entry RemoteEntry) bool

	List(ctx context.Context) ([]RemoteEntry, error)
	ListAt(ctx context.Context, dir string) (string, []RemoteEntry, error)
	Download(ctx context.Context, name, localPath string) error
	DownloadTo(ctx context.Context, name string, dst io.Writer) error
	Upload(ctx context.Context, localPath, name string) error
	UploadFrom(ctx context.Context, src io.Reader, name string) error
	Delete(ctx context.Context, name string) error
}

// Browser is a RemoteFileSession over one Session. Calls are serialised so at
// most one bridge invocation is in flight, even when the front end is an
// HTTP server.
type Browser struct {
	mu      sync.Mutex
	fs      *FileSystem
	session *Session
}

var _ RemoteFileSession = (*Browser)(nil)

func NewBrowser(fs *FileSystem, session *Session) *Browser {
	if session == nil {
		session = NewSession()
	}
	return &Browser{fs: fs, session: session}
}

func (b *Browser) Devices(ctx context.Context) ([]Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fs.Devices(ctx)
}

// SelectDevice makes serial the target of later calls. The serial must be
// attached and authorized. An empty serial goes back to the default device.
func (b *Browser) SelectDevice(ctx context.Context, serial string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	serial = strings.TrimSpace(serial)
	if serial == "" {
		b.session.Device = ""
		return nil
	}

	devices, err := b.fs.Devices(ctx)
	if err != nil {
		return err
	}
	for _, device := range devices {
		if device.Serial == serial {
			b.session.Device = serial
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoDevice, serial)
}

func (b *Browser) Device() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Device
}

func (b *Browser) Scope() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Scope
}

func (b *Browser) SetScope(pkg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.Scope = strings.TrimSpace(pkg)
}

func (b *Browser) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Path()
}

func (b *Browser) Chdir(p string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.Chdir(p)
}

func (b *Browser) EnterRoot() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.EnterRoot()
}

func (b *Browser) EnterUp() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.EnterUp()
}

func (b *Browser) EnterChild(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.EnterChild(name)
}

func (b *Browser) Open(entry RemoteEntry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Open(entry)
}

func (b *Browser) List(ctx context.Context) ([]RemoteEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fs.List(ctx, b.session)
}

// ListAt changes to dir, unless it is empty, and lists the result without
// letting another caller move the session in between.
func (b *Browser) ListAt(ctx context.Context, dir string) (string, []RemoteEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dir != "" {
		b.session.Chdir(dir)
	}
	entries, err := b.fs.List(ctx, b.session)
	return b.session.Path(), entries, err
}

// resolve must be called with mu held.
func (b *Browser) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNoSelection
	}
	return b.session.Resolve(name), nil
}

func (b *Browser) Download(ctx context.Context, name, localPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := b.resolve(name)
	if err != nil {
		return err
	}
	return b.fs.Download(ctx, b.session, remote, localPath)
}

func (b *Browser) DownloadTo(ctx context.Context, name string, dst io.Writer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := b.resolve(name)
	if err != nil {
		return err
	}
	return b.fs.DownloadTo(ctx, b.session, remote, dst)
}

// Upload copies localPath to name. An empty name uploads into the current
// directory under the local file's base name.
func (b *Browser) Upload(ctx context.Context, localPath, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if strings.TrimSpace(localPath) == "" {
		return ErrNoSelection
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(localPath)
	}
	return b.fs.Upload(ctx, b.session, localPath, b.session.Resolve(name))
}

func (b *Browser) UploadFrom(ctx context.Context, src io.Reader, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := b.resolve(name)
	if err != nil {
		return err
	}
	return b.fs.UploadFrom(ctx, b.session, src, remote)
}

func (b *Browser) Delete(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := b.resolve(name)
	if err != nil {
		return err
	}
	return b.fs.Delete(ctx, b.session, remote)
}

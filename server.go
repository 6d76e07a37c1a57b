package adbfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/b1naryth1ef/adbfs/transport"
)

type ServerOpts struct {
	Listen string
}

// Server exposes a RemoteFileSession over HTTP.
type Server struct {
	opts ServerOpts
	http *transport.HTTPServer
}

func NewServer(opts ServerOpts, session RemoteFileSession) *Server {
	http := transport.NewHTTPServer(&httpSession{session: session})
	return &Server{opts: opts, http: http}
}

func (s *Server) Handler() http.Handler {
	return s.http
}

func (s *Server) ListenAndServe() error {
	log.Printf("[Server] listening on %s", s.opts.Listen)
	return http.ListenAndServe(s.opts.Listen, s.http)
}

// httpSession adapts a RemoteFileSession to the wire types of the transport.
type httpSession struct {
	session RemoteFileSession
}

var _ transport.Session = (*httpSession)(nil)

func (h *httpSession) Devices(ctx context.Context) ([]string, string, error) {
	devices, err := h.session.Devices(ctx)
	if err != nil {
		return nil, "", err
	}
	serials := make([]string, 0, len(devices))
	for _, device := range devices {
		serials = append(serials, device.Serial)
	}
	return serials, h.session.Device(), nil
}

func (h *httpSession) SelectDevice(ctx context.Context, serial string) error {
	return wireError(h.session.SelectDevice(ctx, serial))
}

func (h *httpSession) SetScope(pkg string) {
	h.session.SetScope(pkg)
}

func (h *httpSession) Path() string {
	return h.session.Path()
}

func (h *httpSession) Navigate(op, name string) error {
	switch op {
	case "root":
		h.session.EnterRoot()
	case "up":
		h.session.EnterUp()
	case "child":
		if name == "" {
			return wireError(ErrNoSelection)
		}
		h.session.EnterChild(name)
	case "cd":
		h.session.Chdir(name)
	default:
		return fmt.Errorf("%w: unknown navigation %q", transport.ErrBadRequest, op)
	}
	return nil
}

func (h *httpSession) List(ctx context.Context, dir string) (string, []transport.DirEntry, error) {
	listed, entries, err := h.session.ListAt(ctx, dir)
	result := make([]transport.DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, wireEntry(entry))
	}
	return listed, result, err
}

func (h *httpSession) Fetch(ctx context.Context, path string, dst io.Writer) error {
	meter := NewMeter("fetch " + path)
	err := h.session.DownloadTo(ctx, path, meter.Writer(dst))
	if err == nil {
		log.Printf("[Server] %s", meter)
	}
	return wireError(err)
}

func (h *httpSession) Push(ctx context.Context, path string, src io.Reader) error {
	meter := NewMeter("push " + path)
	err := h.session.UploadFrom(ctx, meter.Reader(src), path)
	if err == nil {
		log.Printf("[Server] %s", meter)
	}
	return wireError(err)
}

func (h *httpSession) Delete(ctx context.Context, path string) error {
	return wireError(h.session.Delete(ctx, path))
}

func wireEntry(entry RemoteEntry) transport.DirEntry {
	result := transport.DirEntry{
		Name:        entry.Name,
		Kind:        entry.Kind.String(),
		Size:        entry.Size,
		Owner:       entry.Owner,
		Group:       entry.Group,
		ModTime:     entry.ModifiedAt,
		Permissions: entry.Permissions,
		Target:      entry.LinkTarget,
	}
	if n, err := entry.Bytes(); err == nil {
		result.Bytes = n
	}
	return result
}

func wireError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoSelection):
		return fmt.Errorf("%w: %v", transport.ErrBadRequest, err)
	case errors.Is(err, ErrNoDevice):
		return fmt.Errorf("%w: %v", transport.ErrNotFound, err)
	}
	return err
}

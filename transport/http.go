package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/alioygur/gores"
)

type HTTPServer struct {
	mux *http.ServeMux
}

func NewHTTPServer(session Session) *HTTPServer {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices", func(w http.ResponseWriter, r *http.Request) {
		devices, selected, err := session.Devices(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		gores.JSON(w, http.StatusOK, DevicesResponse{Devices: devices, Selected: selected})
	})
	mux.HandleFunc("POST /device", func(w http.ResponseWriter, r *http.Request) {
		err := session.SelectDevice(r.Context(), r.URL.Query().Get("serial"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /scope", func(w http.ResponseWriter, r *http.Request) {
		session.SetScope(r.URL.Query().Get("package"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /cd", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		err := session.Navigate(query.Get("op"), query.Get("name"))
		if err != nil {
			writeError(w, err)
			return
		}
		gores.JSON(w, http.StatusOK, ListDirectoryResponse{Path: session.Path()})
	})
	mux.HandleFunc("GET /ls", func(w http.ResponseWriter, r *http.Request) {
		dir, entries, err := session.List(r.Context(), r.URL.Query().Get("path"))
		result := ListDirectoryResponse{Path: dir, Entries: []DirEntry{}}
		if err != nil && len(entries) == 0 {
			writeError(w, err)
			return
		} else if err != nil {
			// partial listing, ls still printed what it could read
			result.Error = err.Error()
		}
		result.Entries = append(result.Entries, entries...)
		gores.JSON(w, http.StatusOK, result)
	})
	mux.HandleFunc("GET /fetch", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		dst := &responseSink{w: w}
		err := session.Fetch(r.Context(), path, dst)
		if err != nil && !dst.started {
			writeError(w, err)
			return
		} else if err != nil {
			log.Printf("ERROR: fetch %s failed after %d bytes: %v", path, dst.written, err)
			w.Header().Set(FetchErrorTrailer, err.Error())
		}
	})
	mux.HandleFunc("PUT /push", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		err := session.Push(r.Context(), r.URL.Query().Get("path"), r.Body)
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /rm", func(w http.ResponseWriter, r *http.Request) {
		err := session.Delete(r.Context(), r.URL.Query().Get("path"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return &HTTPServer{mux: mux}
}

func (h *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, ErrBadRequest) {
		status = http.StatusBadRequest
	} else if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}
	gores.Error(w, status, err.Error())
}

// FetchErrorTrailer carries the failure of a fetch that had already started
// streaming when it failed.
const FetchErrorTrailer = "X-Fetch-Error"

// responseSink defers the status line until the first byte arrives so an
// error before any output can still be reported as one.
type responseSink struct {
	w       http.ResponseWriter
	started bool
	written int64
}

func (s *responseSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !s.started {
		s.w.Header().Set("Content-Type", "application/octet-stream")
		s.w.Header().Set("Trailer", FetchErrorTrailer)
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

type HTTPClientTransport struct {
	target string
	client http.Client
}

func NewHTTPClientTransport(target string) *HTTPClientTransport {
	return &HTTPClientTransport{target: target}
}

func (h *HTTPClientTransport) List(path string) (*ListDirectoryResponse, error) {
	u := h.target + "/ls?path=" + url.QueryEscape(path)
	resp, err := h.client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp, u)
	}

	var result ListDirectoryResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode json response: %v", err)
	}
	return &result, nil
}

func (h *HTTPClientTransport) Fetch(path string, dst io.Writer) (int64, error) {
	u := h.target + "/fetch?path=" + url.QueryEscape(path)
	resp, err := h.client.Get(u)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return -1, responseError(resp, u)
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, err
	}
	if msg := resp.Trailer.Get(FetchErrorTrailer); msg != "" {
		return n, fmt.Errorf("%s (after %d bytes)", msg, n)
	}
	return n, nil
}

func (h *HTTPClientTransport) Push(path string, src io.Reader) error {
	return h.do(http.MethodPut, "/push?path="+url.QueryEscape(path), src)
}

func (h *HTTPClientTransport) Delete(path string) error {
	return h.do(http.MethodDelete, "/rm?path="+url.QueryEscape(path), nil)
}

func (h *HTTPClientTransport) do(method, path string, body io.Reader) error {
	u := h.target + path
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return responseError(resp, u)
	}
	return nil
}

// responseError pulls the message out of a gores error body when there is one.
func responseError(resp *http.Response, u string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return fmt.Errorf("%s (%v)", body.Message, resp.StatusCode)
	}
	if msg := bytes.TrimSpace(data); len(msg) > 0 {
		return fmt.Errorf("%s (%v)", msg, resp.StatusCode)
	}
	return fmt.Errorf("bad status code: %v (%v)", resp.StatusCode, u)
}

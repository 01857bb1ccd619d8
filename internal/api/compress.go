package api

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// brotliHandler compresses responses for clients that accept br.
// Websocket upgrades pass through untouched.
func brotliHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !acceptsBrotli(r) || r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		bw := &brotliWriter{ResponseWriter: w}
		defer bw.Close()
		next.ServeHTTP(bw, r)
	})
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if name == "br" {
			return true
		}
	}
	return false
}

type brotliWriter struct {
	http.ResponseWriter
	bw          *brotli.Writer
	wroteHeader bool
	compress    bool
}

func (w *brotliWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	h := w.Header()
	h.Add("Vary", "Accept-Encoding")
	if code >= 200 && code != http.StatusNoContent && code != http.StatusNotModified && h.Get("Content-Encoding") == "" {
		w.compress = true
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *brotliWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if !w.compress {
		return w.ResponseWriter.Write(p)
	}
	if w.bw == nil {
		w.bw = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
	}
	return w.bw.Write(p)
}

// Close flushes the compressed stream.
func (w *brotliWriter) Close() error {
	if w.bw == nil {
		return nil
	}
	return w.bw.Close()
}

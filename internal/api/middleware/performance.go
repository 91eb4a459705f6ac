package middleware

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const uncachedControl = "private, no-cache, must-revalidate"

var gzipWriterPool = sync.Pool{
	New: func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, 5)
		return gz
	},
}

// Compression gzips response bodies for clients that accept it. HEAD
// requests pass through untouched.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")

		gz := gzipWriterPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gzipWriterPool.Put(gz)
		}()

		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, gz: gz}, r)
	})
}

// acceptsGzip parses Accept-Encoding, honouring an explicit q=0
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.gz.Write(b)
}

func (w *gzipResponseWriter) Flush() {
	_ = w.gz.Flush()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ResponseOptimization sets Cache-Control, answers conditional requests and
// gzips bodies. Cached routes get an ETag derived from the same fingerprint
// as the response cache key, so it changes exactly when a new snapshot is
// published and no body has to be buffered to compute it.
func (m *CacheMiddleware) ResponseOptimization(next http.Handler) http.Handler {
	compressed := Compression(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		config, version, ok := m.routeVersion(r)
		if !ok || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			w.Header().Set("Cache-Control", uncachedControl)
			compressed.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, must-revalidate", config.TTLSeconds))
		// Weak: gzip and identity bodies share the tag
		etag := `W/"` + fingerprint(r, version)[:32] + `"`
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		compressed.ServeHTTP(&etagWriter{ResponseWriter: w, etag: etag}, r)
	})
}

// etagMatches implements the weak comparison of If-None-Match
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	opaque := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == opaque {
			return true
		}
	}
	return false
}

// etagWriter attaches the ETag once the status is known. Errors and
// responses marked no-store never carry one.
type etagWriter struct {
	http.ResponseWriter
	etag        string
	wroteHeader bool
}

func (w *etagWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if statusCode == http.StatusOK && !noStore(w.Header()) {
		w.Header().Set("ETag", w.etag)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *etagWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *etagWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

var (
	gzipPool = sync.Pool{
		New: func() interface{} { return gzip.NewWriter(io.Discard) },
	}
	brotliPool = sync.Pool{
		New: func() interface{} { return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression) },
	}
)

// compressWriter starts compressing on the first write, so handlers that
// never write (or panic first) leave Content-Encoding unset.
type compressWriter struct {
	http.ResponseWriter
	encoding    string
	enc         io.WriteCloser
	wroteHeader bool
}

func (w *compressWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	// Handlers such as promhttp may have encoded the body already.
	alreadyEncoded := w.Header().Get("Content-Encoding") != ""
	if !alreadyEncoded && status != http.StatusNoContent && status != http.StatusNotModified {
		h := w.Header()
		h.Set("Content-Encoding", w.encoding)
		h.Del("Content-Length")
		w.enc = w.newEncoder()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.enc == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.enc.Write(b)
}

func (w *compressWriter) newEncoder() io.WriteCloser {
	if w.encoding == "br" {
		bw := brotliPool.Get().(*brotli.Writer)
		bw.Reset(w.ResponseWriter)
		return bw
	}
	gz := gzipPool.Get().(*gzip.Writer)
	gz.Reset(w.ResponseWriter)
	return gz
}

func (w *compressWriter) close() {
	if w.enc == nil {
		return
	}
	w.enc.Close()
	switch e := w.enc.(type) {
	case *brotli.Writer:
		brotliPool.Put(e)
	case *gzip.Writer:
		gzipPool.Put(e)
	}
}

// negotiateEncoding prefers brotli over gzip.
func negotiateEncoding(acceptEncoding string) string {
	var gz bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.ReplaceAll(params, " ", "") == "q=0" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "br":
			return "br"
		case "gzip":
			gz = true
		}
	}
	if gz {
		return "gzip"
	}
	return ""
}

// Compress compresses responses with brotli or gzip, whichever the client
// accepts, and always sets Vary: Accept-Encoding.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressWriter{ResponseWriter: w, encoding: encoding}
		defer cw.close()
		next.ServeHTTP(cw, r)
	})
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// brotliWriter compresses the body once it sees a compressible content type.
type brotliWriter struct {
	gin.ResponseWriter
	quality int
	enc     *brotli.Writer
	decided bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if !w.decided {
		w.decided = true
		if compressible(w.Header().Get("Content-Type")) {
			w.Header().Set("Content-Encoding", "br")
			w.Header().Del("Content-Length")
			w.enc = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
		}
	}
	if w.enc == nil {
		return w.ResponseWriter.Write(data)
	}
	return w.enc.Write(data)
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *brotliWriter) Flush() {
	if w.enc != nil {
		_ = w.enc.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) close() error {
	if w.enc == nil {
		return nil
	}
	return w.enc.Close()
}

// Brotli compresses JSON responses for clients that accept br. Event
// streams, WebSocket upgrades and binary downloads pass through.
func Brotli(quality int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}

	return func(c *gin.Context) {
		if passthrough(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, quality: quality}
		c.Writer = bw
		defer func() {
			if err := bw.close(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

func passthrough(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func compressible(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "br") {
			return true
		}
	}
	return false
}

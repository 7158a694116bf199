package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	KeyRequestID      = "X-Request-ID"
	HeaderProcessTime = "X-Process-Time"
)

// RequestID keeps a caller supplied id or makes one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}

// ProcessTime reports handler time in seconds. The header has to be set
// before the body is written, so it hooks the writer.
func ProcessTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: start}
		c.Next()
	}
}

type timedWriter struct {
	gin.ResponseWriter
	start time.Time
	done  bool
}

func (w *timedWriter) stamp() {
	if w.done {
		return
	}
	w.done = true
	secs := time.Since(w.start).Seconds()
	w.ResponseWriter.Header().Set(HeaderProcessTime, strconv.FormatFloat(secs, 'f', 6, 64))
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

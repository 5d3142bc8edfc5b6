package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Status labels shared by record and module metrics
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		// Route templates keep label cardinality bounded (/modules/:name, not /modules/foo).
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RecordHTTPRequest(
			method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			reqSize,
			int64(c.Writer.Size()),
		)
	}
}

// Timer measures a module call
type Timer struct {
	start   time.Time
	metrics *Metrics
	module  string
}

// NewTimer starts timing a call into module
func NewTimer(metrics *Metrics, module string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		module:  module,
	}
}

// Stop records the elapsed time with the given status and returns it
func (t *Timer) Stop(status string) time.Duration {
	d := time.Since(t.start)
	t.metrics.RecordModuleCall(t.module, status, d)
	return d
}

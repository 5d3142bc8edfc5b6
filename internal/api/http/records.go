package http

import (
	"context"
	"errors"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/MicroMind/backend/internal/ingest"
	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MaxTextLength bounds a submitted record in bytes
const MaxTextLength = 64 << 10

// SubmitRequest submits text for processing
type SubmitRequest struct {
	Text  string `json:"text" binding:"required"`
	Async bool   `json:"async"`
}

// RecordResponse is a processed record and what went wrong, if anything
type RecordResponse struct {
	Record     orchestrator.RecordView `json:"record"`
	Errors     []string                `json:"errors,omitempty"`
	DurationMS float64                 `json:"duration_ms"`
	Worker     int                     `json:"worker"`
}

// NewRecordResponse flattens a pipeline result for the wire
func NewRecordResponse(res *orchestrator.Result) RecordResponse {
	resp := RecordResponse{
		Record:     res.Record.Snapshot(),
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
		Worker:     res.Worker,
	}
	for _, err := range multierr.Errors(res.Err) {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return resp
}

// cleanText strips markup and returns the plain text to process
func (h *Handlers) cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitize.Sanitize(s)))
}

// SubmitRecord runs text through the pipeline. Synchronous submissions
// answer with the processed record; async ones answer 202 with its ID.
func (h *Handlers) SubmitRecord(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Text) > MaxTextLength {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "text too long"})
		return
	}

	text := h.cleanText(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is empty after sanitizing"})
		return
	}

	h.process(c, text, req.Async)
}

// SubmitRaw processes an uploaded body (plain text or HTML in any charset).
// Pass ?async=true to queue without waiting.
func (h *Handlers) SubmitRaw(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, ingest.MaxBodySize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := ingest.Extract(body, c.GetHeader("Content-Type"))
	switch {
	case errors.Is(err, ingest.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ingest.ErrUnsupported):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(doc.Text) > MaxTextLength {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "text too long"})
		return
	}

	h.logger.Debug("raw upload decoded",
		zap.String("mime", doc.MIME),
		zap.String("charset", doc.Charset))
	h.process(c, doc.Text, c.Query("async") == "true")
}

func (h *Handlers) process(c *gin.Context, text string, async bool) {
	if async {
		h.submitAsync(c, text)
		return
	}

	res, err := h.orch.Process(c.Request.Context(), text)
	// Only module failures come back as 422; a record that was never run
	// or was cut short reports why.
	if err != nil && (res == nil || submitStatus(err) != http.StatusInternalServerError) {
		c.JSON(submitStatus(err), gin.H{"error": err.Error()})
		return
	}

	code := http.StatusOK
	if res.Err != nil {
		code = http.StatusUnprocessableEntity
	}
	c.JSON(code, NewRecordResponse(res))
}

func (h *Handlers) submitAsync(c *gin.Context, text string) {
	// The record outlives the request.
	ctx := context.WithoutCancel(c.Request.Context())

	ticket, err := h.orch.Submit(ctx, text)
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"error": err.Error()})
		return
	}

	go func() {
		res := <-ticket.Done()
		if res.Err != nil {
			h.logger.Warn("async record failed",
				zap.String("record_id", ticket.RecordID.String()),
				zap.Error(res.Err))
			return
		}
		h.logger.Debug("async record processed",
			zap.String("record_id", ticket.RecordID.String()),
			zap.Duration("duration", res.Duration))
	}()

	c.JSON(http.StatusAccepted, gin.H{"record_id": ticket.RecordID})
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrQueueFull),
		errors.Is(err, orchestrator.ErrStopped),
		errors.Is(err, orchestrator.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

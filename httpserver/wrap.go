package httpserver

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/notify"
	"github.com/krisalay/sharecache/service"
)

type handlerFunc func(c *gin.Context) (interface{}, error)

// wrapHandler renders the returned value as JSON, or maps the error to a status code.
func wrapHandler(handle handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := handle(c)
		if err != nil {
			writeError(c, err)
			return
		}
		// handlers may have picked a status such as 202 already
		c.JSON(c.Writer.Status(), data)
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFound), errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	default:
		log.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func startStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

// streamEvents forwards every batch of sub as one SSE "events" message.
func streamEvents(c *gin.Context, sub *notify.Subscription) {
	defer sub.Close()

	startStream(c)
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-sub.C():
			if !ok {
				return
			}
			c.SSEvent("events", batch)
			c.Writer.Flush()
		}
	}
}

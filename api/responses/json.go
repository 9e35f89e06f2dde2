package responses

import (
	"net/http"

	"Board/api/apperr"
	httpctx "Board/api/utils/httpctx"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// JSON writes the success envelope.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, gin.H{
		"status":   status,
		"response": payload,
	})
}

// ERROR writes the failure envelope for err. Server faults are logged with
// their cause and answered with a generic message.
func ERROR(c *gin.Context, err error) {
	status := apperr.Status(err)
	entry := log.WithFields(log.Fields{
		"request_id": httpctx.RequestID(c),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request refused")
	}
	c.JSON(status, gin.H{
		"status": status,
		"error":  apperr.Public(err),
	})
}

// BadRequest answers with a 400 for a body or parameter the handler could
// not read.
func BadRequest(c *gin.Context, message string) {
	ERROR(c, apperr.Invalid("%s", message))
}

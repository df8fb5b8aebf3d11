package errorx

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Respond writes the HTTP response for err. Expected errors surface their
// client-safe message; anything else is logged in full and surfaced as a
// generic failure so internal detail never leaks.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	if err == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		e = Internal(err)
	}

	if e.kind == KindInternal || e.kind == KindCrypto {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(HTTPStatus(e.kind), gin.H{"error": e.msg})
}

// Abort responds with err and aborts the middleware chain.
func Abort(c *gin.Context, logger *zap.Logger, err error) {
	Respond(c, logger, err)
	c.Abort()
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

// ErrorLogger logs the errors handlers attached with c.Error. The response
// itself is written by httputil.RespondWithError. Internal errors are logged
// at error level, client mistakes at debug.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			code := apperrors.CodeOf(e.Err)
			event := log.Debug()
			if code == apperrors.ErrInternal {
				event = log.Error()
			}
			event.
				Err(e.Err).
				Str("code", code.String()).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}
	}
}

package middleware

import (
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error added with c.Error as an ErrorResponse
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
